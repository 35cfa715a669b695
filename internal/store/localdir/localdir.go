// Package localdir implements store.Store on a media collection folder.
package localdir

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rsakamoto/mediaimport/internal/checksum"
	"github.com/rsakamoto/mediaimport/internal/source"
	"github.com/rsakamoto/mediaimport/internal/source/local"
)

// Store writes media files into a flat collection directory. Like the
// collection it stands in for, a write that collides with an existing file
// keeps the existing file when the content is identical and otherwise
// stores under a deduplicated name, reporting the name actually used.
type Store struct {
	dir string
}

// New creates the collection directory if needed and returns a store.
func New(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create collection directory: %w", err)
	}
	return &Store{dir: abs}, nil
}

// Dir returns the collection directory path.
func (s *Store) Dir() string {
	return s.dir
}

// List enumerates the media files currently in the collection. The
// collection is flat, so enumeration is non-recursive.
func (s *Store) List(ctx context.Context) ([]source.File, error) {
	root, err := local.NewRoot(s.dir)
	if err != nil {
		return nil, err
	}
	return root.ListFiles(ctx, false)
}

// Write persists data under name. On a name collision with identical
// content the existing file is kept; with differing content the data is
// stored under the next free "name (N).ext" variant. Either way the
// returned name is the one the collection ends up referencing.
func (s *Store) Write(ctx context.Context, name string, data []byte) (string, error) {
	target := filepath.Join(s.dir, name)

	if existing, err := os.ReadFile(target); err == nil {
		same, err := sameContent(existing, data)
		if err != nil {
			return "", err
		}
		if same {
			return name, nil
		}
		name = s.dedupedName(name)
		target = filepath.Join(s.dir, name)
	} else if !os.IsNotExist(err) {
		return "", err
	}

	if err := os.WriteFile(target, data, 0644); err != nil {
		return "", err
	}
	return name, nil
}

func sameContent(a, b []byte) (bool, error) {
	if len(a) != len(b) {
		return false, nil
	}
	hashA, err := checksum.Sum(a, checksum.MD5)
	if err != nil {
		return false, err
	}
	hashB, err := checksum.Sum(b, checksum.MD5)
	if err != nil {
		return false, err
	}
	return hashA == hashB, nil
}

func (s *Store) dedupedName(name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		if _, err := os.Stat(filepath.Join(s.dir, candidate)); os.IsNotExist(err) {
			return candidate
		}
	}
}
