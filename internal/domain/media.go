package domain

import (
	"path"
	"strings"
)

// mediaExtensions is the fixed allow-list of importable media formats:
// raster images plus the audio/video containers the collection can play.
// Everything else is skipped during enumeration.
var mediaExtensions = map[string]struct{}{
	// images
	"jpg": {}, "jpeg": {}, "png": {}, "tif": {}, "tiff": {},
	"gif": {}, "svg": {}, "webp": {}, "ico": {}, "avif": {},
	// audio and video
	"wav": {}, "mp3": {}, "ogg": {}, "oga": {}, "ogv": {}, "ogx": {},
	"flac": {}, "mp4": {}, "m4a": {}, "m4v": {}, "mov": {}, "mpeg": {},
	"mpg": {}, "mkv": {}, "avi": {}, "flv": {}, "swf": {}, "3gp": {},
	"aac": {}, "spx": {}, "webm": {}, "opus": {},
}

// IsMediaExtension reports whether ext (without leading dot) is on the
// allow-list. The check is case-insensitive.
func IsMediaExtension(ext string) bool {
	_, ok := mediaExtensions[strings.ToLower(ext)]
	return ok
}

// Extension returns the lowercased extension of name without the leading
// dot, or "" when name has none.
func Extension(name string) string {
	ext := path.Ext(name)
	if ext == "" {
		return ""
	}
	return strings.ToLower(ext[1:])
}
