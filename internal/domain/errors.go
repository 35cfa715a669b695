package domain

import "errors"

// Root construction errors
var (
	// ErrMalformedURL indicates the location string does not match the
	// backend's expected pattern
	ErrMalformedURL = errors.New("malformed location")

	// ErrRootNotFound indicates the location looks valid but does not point
	// to an existing folder
	ErrRootNotFound = errors.New("root not found")

	// ErrIsAFile indicates a folder was expected but the location points to
	// a single file
	ErrIsAFile = errors.New("location is a file, not a folder")

	// ErrIsADirectory indicates a file was expected but the location points
	// to a directory
	ErrIsADirectory = errors.New("location is a directory, not a file")

	// ErrIncompatibleFormat indicates an archive uses a newer packaging
	// format than this importer understands
	ErrIncompatibleFormat = errors.New("incompatible archive format")

	// ErrMissingCredentials indicates no API key or OAuth credentials are
	// configured for a backend that requires them
	ErrMissingCredentials = errors.New("missing credentials")
)

// Enumeration and transfer errors
var (
	// ErrPermissionDenied indicates insufficient permissions
	ErrPermissionDenied = errors.New("permission denied")

	// ErrRateLimited indicates the remote API rejected the request because
	// a usage quota was exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrServerError indicates a remote 5xx failure
	ErrServerError = errors.New("remote server error")

	// ErrRequestFailed indicates a request failure with no more specific
	// classification
	ErrRequestFailed = errors.New("request failed")

	// ErrUnexpectedRename indicates the destination store persisted a file
	// under a different name than requested, which validation should have
	// made impossible
	ErrUnexpectedRename = errors.New("store renamed file unexpectedly")
)

// Config errors
var (
	// ErrConfigNotFound indicates config file not found
	ErrConfigNotFound = errors.New("config file not found")

	// ErrConfigInvalid indicates config file is malformed
	ErrConfigInvalid = errors.New("invalid config")
)
