package source

import "context"

// File is one candidate medium enumerated from a Root. Implementations are
// immutable after enumeration; identity computation is the only deferred
// work and must be cached per instance.
type File interface {
	// Name returns the file name including its extension. Stable for the
	// duration of one import run.
	Name() string

	// Extension returns the lowercased extension without the leading dot.
	Extension() string

	// Size returns the content size in bytes.
	Size() int64

	// ContentIdentity returns an opaque comparable token for the content,
	// typically an MD5 digest. Computing it may be expensive (full local
	// read or a remote call), so implementations compute it lazily and
	// cache the result. An empty token with nil error means the backend
	// cannot supply one; callers fall back to size-only comparison.
	ContentIdentity(ctx context.Context) (string, error)

	// ReadBytes fetches the full content, decrypting or decompressing as
	// the backend requires.
	ReadBytes(ctx context.Context) ([]byte, error)
}

// Root is one importable source location. Constructors fail fast with a
// typed domain error when the location is malformed, missing, or the wrong
// kind. Enumeration must be stable across repeated calls within a run.
type Root interface {
	// DisplayName returns a human-readable name for the location.
	DisplayName() string

	// ListFiles enumerates the media files under the root. For
	// directory-like backends recursive means depth-first traversal of all
	// nested containers. Only entries on the media extension allow-list are
	// returned; everything else is silently skipped.
	ListFiles(ctx context.Context, recursive bool) ([]File, error)
}

// Identical reports whether two files have the same content. Size is
// compared first as a cheap short-circuit. When both sides can supply an
// identity token the tokens decide; when either side cannot (some remote
// backends only expose size), size equality alone is the answer. That
// fallback is a documented limitation of such backends, not an error.
func Identical(ctx context.Context, a, b File) (bool, error) {
	if a.Size() != b.Size() {
		return false, nil
	}
	idA, err := a.ContentIdentity(ctx)
	if err != nil {
		return false, err
	}
	idB, err := b.ContentIdentity(ctx)
	if err != nil {
		return false, err
	}
	if idA == "" || idB == "" {
		return true, nil
	}
	return idA == idB, nil
}
