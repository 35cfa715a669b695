package resolve

import (
	"context"
	"testing"

	"github.com/rsakamoto/mediaimport/internal/checksum"
	"github.com/rsakamoto/mediaimport/internal/domain"
	"github.com/rsakamoto/mediaimport/internal/source"
)

// fakeFile implements source.File backed by in-memory content.
type fakeFile struct {
	name       string
	data       []byte
	noIdentity bool
}

func (f *fakeFile) Name() string      { return f.name }
func (f *fakeFile) Extension() string { return domain.Extension(f.name) }
func (f *fakeFile) Size() int64       { return int64(len(f.data)) }

func (f *fakeFile) ContentIdentity(ctx context.Context) (string, error) {
	if f.noIdentity {
		return "", nil
	}
	return checksum.Sum(f.data, checksum.MD5)
}

func (f *fakeFile) ReadBytes(ctx context.Context) ([]byte, error) {
	return f.data, nil
}

func names(files []source.File) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name()
	}
	return out
}

func TestFindUnnormalized(t *testing.T) {
	files := []source.File{
		&fakeFile{name: "a.png"},
		&fakeFile{name: "cafe\u0301.png"}, // decomposed accent, not NFC
		&fakeFile{name: "café.png"},  // precomposed, NFC
	}

	bad := FindUnnormalized(files)

	if len(bad) != 1 {
		t.Fatalf("Expected 1 unnormalized name, got %d", len(bad))
	}
	if bad[0].Name() != "cafe\u0301.png" {
		t.Errorf("Expected decomposed name, got %q", bad[0].Name())
	}
}

func TestResolveIntraList_NoCollisions(t *testing.T) {
	files := []source.File{
		&fakeFile{name: "a.png", data: []byte("aaa")},
		&fakeFile{name: "b.png", data: []byte("bbb")},
		&fakeFile{name: "c.mp3", data: []byte("ccc")},
	}

	remaining, dropped, conflict, err := ResolveIntraList(context.Background(), files)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if conflict {
		t.Error("Expected no conflict")
	}
	if dropped != 0 {
		t.Errorf("Expected 0 dropped, got %d", dropped)
	}
	if len(remaining) != 3 {
		t.Errorf("Expected 3 remaining, got %d", len(remaining))
	}
}

func TestResolveIntraList_IdenticalDuplicates(t *testing.T) {
	first := &fakeFile{name: "a.png", data: []byte("same")}
	second := &fakeFile{name: "a.png", data: []byte("same")}
	files := []source.File{first, &fakeFile{name: "b.png", data: []byte("bbb")}, second}

	remaining, dropped, conflict, err := ResolveIntraList(context.Background(), files)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if conflict {
		t.Error("Expected no conflict for identical duplicates")
	}
	if dropped != 1 {
		t.Errorf("Expected 1 dropped, got %d", dropped)
	}
	if len(remaining) != 2 {
		t.Fatalf("Expected 2 remaining, got %v", names(remaining))
	}
	// The earlier-listed representative survives.
	if remaining[0] != source.File(first) {
		t.Error("Expected the earliest-listed duplicate to survive")
	}
}

func TestResolveIntraList_DifferingContent(t *testing.T) {
	files := []source.File{
		&fakeFile{name: "a.png", data: []byte("one")},
		&fakeFile{name: "a.png", data: []byte("two")},
	}

	_, _, conflict, err := ResolveIntraList(context.Background(), files)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !conflict {
		t.Error("Expected conflict for same-named files with different content")
	}
}

func TestResolveIntraList_SizeOnlyFallback(t *testing.T) {
	// When one side has no identity token, equal size counts as identical.
	files := []source.File{
		&fakeFile{name: "a.png", data: []byte("xxx"), noIdentity: true},
		&fakeFile{name: "a.png", data: []byte("yyy")},
	}

	remaining, dropped, conflict, err := ResolveIntraList(context.Background(), files)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if conflict {
		t.Error("Expected size-only fallback to treat equal sizes as identical")
	}
	if dropped != 1 || len(remaining) != 1 {
		t.Errorf("Expected 1 dropped / 1 remaining, got %d / %d", dropped, len(remaining))
	}
}

func TestResolveAgainstStore(t *testing.T) {
	files := []source.File{
		&fakeFile{name: "same.png", data: []byte("identical")},
		&fakeFile{name: "clash.png", data: []byte("new content")},
		&fakeFile{name: "fresh.png", data: []byte("fresh")},
	}
	existing := []source.File{
		&fakeFile{name: "same.png", data: []byte("identical")},
		&fakeFile{name: "clash.png", data: []byte("old content!")},
	}

	remaining, skipped, conflicts, err := ResolveAgainstStore(context.Background(), files, existing)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if skipped != 1 {
		t.Errorf("Expected 1 skipped, got %d", skipped)
	}
	if len(conflicts) != 1 || conflicts[0].Name() != "clash.png" {
		t.Fatalf("Expected clash.png as conflict, got %v", names(conflicts))
	}
	for _, f := range remaining {
		if f.Name() == "same.png" {
			t.Error("Expected identical file to be removed from remaining")
		}
	}
}

func TestResolveAgainstStore_NoCollisions(t *testing.T) {
	files := []source.File{
		&fakeFile{name: "a.png", data: []byte("a")},
	}
	existing := []source.File{
		&fakeFile{name: "b.png", data: []byte("b")},
	}

	remaining, skipped, conflicts, err := ResolveAgainstStore(context.Background(), files, existing)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if skipped != 0 || len(conflicts) != 0 || len(remaining) != 1 {
		t.Errorf("Expected untouched list, got skipped=%d conflicts=%d remaining=%d",
			skipped, len(conflicts), len(remaining))
	}
}
