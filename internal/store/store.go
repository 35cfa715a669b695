// Package store defines the destination the import engine writes into.
package store

import (
	"context"

	"github.com/rsakamoto/mediaimport/internal/source"
)

// Store is the destination media collection. It has one write capability:
// accept raw bytes plus a desired name and report the name actually
// stored, which a store may alter on a server-side collision. The engine
// validates against List beforehand precisely so that never happens; a
// differing stored name is reported as domain.ErrUnexpectedRename.
type Store interface {
	// Write persists data under name and returns the stored name.
	Write(ctx context.Context, name string, data []byte) (string, error)

	// List enumerates the media files already in the store, for conflict
	// checking before a run. Enumeration is flat: stores are a single
	// namespace of file names.
	List(ctx context.Context) ([]source.File, error)
}
