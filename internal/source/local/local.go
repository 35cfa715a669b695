package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rsakamoto/mediaimport/internal/checksum"
	"github.com/rsakamoto/mediaimport/internal/domain"
	"github.com/rsakamoto/mediaimport/internal/source"
)

// Root implements source.Root for a local directory or a single file.
type Root struct {
	path   string
	isFile bool
}

// NewRoot creates a local root from a filesystem path. A directory
// enumerates its media files; a plain file yields a one-file root.
func NewRoot(path string) (*Root, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedURL, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrRootNotFound
		}
		if os.IsPermission(err) {
			return nil, domain.ErrPermissionDenied
		}
		return nil, err
	}

	return &Root{path: abs, isFile: !info.IsDir()}, nil
}

// DisplayName returns the base name of the root path.
func (r *Root) DisplayName() string {
	return filepath.Base(r.path)
}

// ListFiles enumerates media files under the root. Directories are walked
// depth-first when recursive is set; entries outside the media allow-list
// are skipped silently.
func (r *Root) ListFiles(ctx context.Context, recursive bool) ([]source.File, error) {
	if r.isFile {
		f, err := newFile(r.path)
		if err != nil {
			return nil, err
		}
		return []source.File{f}, nil
	}

	var files []source.File
	if err := r.search(ctx, &files, r.path, recursive); err != nil {
		return nil, err
	}
	return files, nil
}

func (r *Root) search(ctx context.Context, files *[]source.File, dir string, recursive bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("%w: %s", domain.ErrPermissionDenied, dir)
		}
		return err
	}

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		full := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			if recursive {
				if err := r.search(ctx, files, full, true); err != nil {
					return err
				}
			}
			continue
		}
		if !domain.IsMediaExtension(domain.Extension(entry.Name())) {
			continue
		}
		f, err := newFile(full)
		if err != nil {
			return err
		}
		*files = append(*files, f)
	}
	return nil
}

// File implements source.File for a local file.
type File struct {
	path string
	name string
	ext  string
	size int64

	identityOnce sync.Once
	identity     string
	identityErr  error
}

func newFile(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrPermissionDenied, path)
		}
		return nil, err
	}
	name := filepath.Base(path)
	return &File{
		path: path,
		name: name,
		ext:  domain.Extension(name),
		size: info.Size(),
	}, nil
}

func (f *File) Name() string      { return f.name }
func (f *File) Extension() string { return f.ext }
func (f *File) Size() int64       { return f.size }

// ContentIdentity returns the MD5 digest of the file content, computed on
// first use and cached.
func (f *File) ContentIdentity(ctx context.Context) (string, error) {
	f.identityOnce.Do(func() {
		file, err := os.Open(f.path)
		if err != nil {
			f.identityErr = err
			return
		}
		defer file.Close()
		f.identity, f.identityErr = checksum.NewDefaultCalculator().Calculate(ctx, file, checksum.MD5)
	})
	return f.identity, f.identityErr
}

// ReadBytes reads the full file content.
func (f *File) ReadBytes(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil && os.IsPermission(err) {
		return nil, fmt.Errorf("%w: %s", domain.ErrPermissionDenied, f.path)
	}
	return data, err
}
