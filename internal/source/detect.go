package source

import "strings"

// Kind identifies which backend should handle a raw location string.
type Kind string

const (
	KindLocal   Kind = "local"
	KindGDrive  Kind = "gdrive"
	KindMega    Kind = "mega"
	KindArchive Kind = "apkg"
)

// Detect classifies a raw location string. Google Drive and MEGA share
// links are recognized by host, archive packages by suffix; anything else
// is treated as a local path.
func Detect(location string) Kind {
	trimmed := strings.TrimSpace(location)
	if strings.Contains(trimmed, "drive.google.com/") {
		return KindGDrive
	}
	if strings.Contains(trimmed, "mega.nz/") ||
		strings.Contains(trimmed, "mega.io/") ||
		strings.Contains(trimmed, "mega.co.nz/") {
		return KindMega
	}
	if strings.HasSuffix(strings.ToLower(trimmed), ".apkg") {
		return KindArchive
	}
	return KindLocal
}
