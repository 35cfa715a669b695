package apkg

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rsakamoto/mediaimport/internal/checksum"
	"github.com/rsakamoto/mediaimport/internal/domain"
	"github.com/rsakamoto/mediaimport/internal/source"
)

const (
	metaEntryName  = "meta"
	mediaEntryName = "media"
)

// Root implements source.Root for an .apkg archive. The archive's media
// manifest maps internal storage names to the original file names; the
// file list is materialized at construction so an unsupported package
// version fails before any import work starts.
type Root struct {
	path    string
	name    string
	archive *zip.ReadCloser
	files   []source.File
}

// NewRoot opens the archive, validates the packaging version and reads
// the media manifest.
func NewRoot(path string) (*Root, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrRootNotFound
		}
		if os.IsPermission(err) {
			return nil, domain.ErrPermissionDenied
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, domain.ErrIsADirectory
	}
	if !strings.EqualFold(filepath.Ext(path), ".apkg") {
		return nil, domain.ErrMalformedURL
	}

	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedURL, err)
	}

	r := &Root{
		path:    path,
		name:    filepath.Base(path),
		archive: archive,
	}
	if err := r.loadManifest(); err != nil {
		archive.Close()
		return nil, err
	}
	return r, nil
}

func (r *Root) loadManifest() error {
	// A missing meta entry marks a legacy version-1 package; an existing
	// but unreadable one means the archive is damaged.
	version := versionLegacyJSON
	metaData, err := r.readEntry(metaEntryName)
	switch {
	case err == nil:
		v, err := parseMetaVersion(metaData)
		if err != nil {
			return err
		}
		version = v
	case errors.Is(err, errEntryNotFound):
	default:
		return fmt.Errorf("%w: unreadable meta entry: %v", domain.ErrMalformedURL, err)
	}
	if version > maxVersion {
		return fmt.Errorf("%w: package version %d", domain.ErrIncompatibleFormat, version)
	}

	mediaData, err := r.readEntry(mediaEntryName)
	if errors.Is(err, errEntryNotFound) {
		return fmt.Errorf("%w: no media manifest", domain.ErrMalformedURL)
	}
	if err != nil {
		return fmt.Errorf("%w: unreadable media manifest: %v", domain.ErrMalformedURL, err)
	}
	manifest, err := parseManifest(mediaData, version)
	if err != nil {
		return err
	}

	entries := make(map[string]*zip.File, len(r.archive.File))
	for _, f := range r.archive.File {
		entries[f.Name] = f
	}

	// Internal storage names are entry indexes; walking them in index
	// order keeps the file list stable across opens.
	internals := make([]string, 0, len(manifest))
	for internal := range manifest {
		internals = append(internals, internal)
	}
	sort.Slice(internals, func(i, j int) bool {
		a, errA := strconv.Atoi(internals[i])
		b, errB := strconv.Atoi(internals[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return internals[i] < internals[j]
	})

	for _, internal := range internals {
		name := manifest[internal]
		entry, ok := entries[internal]
		if !ok {
			continue
		}
		ext := domain.Extension(name)
		if !domain.IsMediaExtension(ext) {
			continue
		}
		r.files = append(r.files, &File{
			entry: entry,
			name:  name,
			ext:   ext,
		})
	}
	return nil
}

var errEntryNotFound = errors.New("entry not found")

func (r *Root) readEntry(name string) ([]byte, error) {
	for _, f := range r.archive.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("%w: %q", errEntryNotFound, name)
}

// DisplayName returns the archive file name.
func (r *Root) DisplayName() string {
	return r.name
}

// ListFiles returns the materialized file list. Archives have no folder
// structure, so the recursive flag has no effect.
func (r *Root) ListFiles(ctx context.Context, recursive bool) ([]source.File, error) {
	out := make([]source.File, len(r.files))
	copy(out, r.files)
	return out, nil
}

// Close releases the underlying archive handle.
func (r *Root) Close() error {
	return r.archive.Close()
}

// File implements source.File for one archived medium. The size comes
// from the zip header; the identity is a lazily computed MD5 of the
// decompressed content.
type File struct {
	entry *zip.File
	name  string
	ext   string

	identityOnce sync.Once
	identity     string
	identityErr  error
}

func (f *File) Name() string      { return f.name }
func (f *File) Extension() string { return f.ext }
func (f *File) Size() int64       { return int64(f.entry.UncompressedSize64) }

func (f *File) ContentIdentity(ctx context.Context) (string, error) {
	f.identityOnce.Do(func() {
		rc, err := f.entry.Open()
		if err != nil {
			f.identityErr = err
			return
		}
		defer rc.Close()
		f.identity, f.identityErr = checksum.NewDefaultCalculator().Calculate(ctx, rc, checksum.MD5)
	})
	return f.identity, f.identityErr
}

// ReadBytes decompresses the full entry content.
func (f *File) ReadBytes(ctx context.Context) ([]byte, error) {
	rc, err := f.entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
