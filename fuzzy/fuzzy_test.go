package fuzzy

import (
	"os"
	"path/filepath"
	"testing"

	"picpick/logger"
)

func init() {
	logger.Init("error")
}

func TestRegistry(t *testing.T) {
	h, ok := Lookup("TLSH")
	if !ok || h.Name() != "tlsh" {
		t.Fatal("expected tlsh to be registered")
	}
	names := Available()
	if len(names) == 0 || names[0] != "tlsh" {
		t.Fatalf("unexpected names: %v", names)
	}
	Register(nil)
	if len(Available()) != len(names) {
		t.Fatal("nil hasher must not be registered")
	}
}

func TestHashAllSkipsSmallFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.jpg")
	if err := os.WriteFile(path, []byte("tiny"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := HashAll(path); len(got) != 0 {
		t.Fatalf("expected no fuzzy hashes, got %v", got)
	}
	if _, err := (TLSHHasher{}).HashFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
