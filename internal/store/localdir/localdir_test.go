package localdir

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rsakamoto/mediaimport/internal/testutil"
)

func TestWrite_New(t *testing.T) {
	dir := testutil.TempDir(t)
	st, err := New(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	name, err := st.Write(context.Background(), "a.png", []byte("data"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if name != "a.png" {
		t.Errorf("Expected unchanged name, got %q", name)
	}

	data, err := os.ReadFile(filepath.Join(dir, "a.png"))
	if err != nil {
		t.Fatalf("Failed to read back: %v", err)
	}
	if string(data) != "data" {
		t.Errorf("Expected stored content, got %q", data)
	}
}

func TestWrite_IdenticalCollision(t *testing.T) {
	dir := testutil.TempDir(t)
	st, err := New(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	testutil.CreateTestFile(t, dir, "a.png", []byte("same"))

	name, err := st.Write(context.Background(), "a.png", []byte("same"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if name != "a.png" {
		t.Errorf("Expected unchanged name for identical content, got %q", name)
	}
}

func TestWrite_DifferingCollision(t *testing.T) {
	dir := testutil.TempDir(t)
	st, err := New(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	testutil.CreateTestFile(t, dir, "a.png", []byte("old"))

	name, err := st.Write(context.Background(), "a.png", []byte("new!"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if name != "a (1).png" {
		t.Errorf("Expected deduplicated name, got %q", name)
	}

	data, err := os.ReadFile(filepath.Join(dir, "a (1).png"))
	if err != nil {
		t.Fatalf("Failed to read deduplicated file: %v", err)
	}
	if string(data) != "new!" {
		t.Errorf("Expected new content, got %q", data)
	}

	// A second differing collision takes the next free variant.
	name, err = st.Write(context.Background(), "a.png", []byte("newer"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if name != "a (2).png" {
		t.Errorf("Expected next variant, got %q", name)
	}
}

func TestList(t *testing.T) {
	dir := testutil.TempDir(t)
	st, err := New(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	testutil.CreateTestFile(t, dir, "a.png", []byte("a"))
	testutil.CreateTestFile(t, dir, "skip.txt", []byte("not media"))

	files, err := st.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(files) != 1 || files[0].Name() != "a.png" {
		t.Errorf("Expected only a.png, got %d files", len(files))
	}
}

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(testutil.TempDir(t), "collection.media")

	if _, err := New(dir); err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("Expected collection directory to exist, err=%v", err)
	}
}
