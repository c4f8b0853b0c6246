package workers

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMoveToLibrary(t *testing.T) {
	staging := t.TempDir()
	library := filepath.Join(t.TempDir(), "videos")

	staged := filepath.Join(staging, "job1.mkv")
	if err := os.WriteFile(staged, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	final, err := moveToLibrary(staged, library)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if final != filepath.Join(library, "job1.mkv") {
		t.Fatalf("unexpected destination %q", final)
	}
	if _, err := os.Stat(staged); !os.IsNotExist(err) {
		t.Fatal("staged file should be gone")
	}
	if data, err := os.ReadFile(final); err != nil || string(data) != "data" {
		t.Fatalf("library file broken: %q %v", data, err)
	}
}

func TestMoveToLibraryAvoidsCollisions(t *testing.T) {
	staging := t.TempDir()
	library := t.TempDir()

	if err := os.WriteFile(filepath.Join(library, "out.mkv"), []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	staged := filepath.Join(staging, "out.mkv")
	if err := os.WriteFile(staged, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}

	final, err := moveToLibrary(staged, library)
	if err != nil {
		t.Fatal(err)
	}
	if final != filepath.Join(library, "out-1.mkv") {
		t.Fatalf("expected suffixed name, got %q", final)
	}
	if data, _ := os.ReadFile(filepath.Join(library, "out.mkv")); string(data) != "old" {
		t.Fatal("existing file must not be overwritten")
	}
}
