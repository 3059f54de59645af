package hasher

import (
	"os"
	"path/filepath"
	"testing"

	"picpick/logger"
)

func init() {
	logger.Init("error")
}

func TestComputeHashes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hash.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	hashes := ComputeHashes(path, []string{"md5", "sha1", "sha256", "blake3", "xxhash", "sha256", "bogus"})
	want := map[string]string{
		"md5":    "5d41402abc4b2a76b9719d911017c592",
		"sha1":   "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d",
		"sha256": "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
		"xxhash": "26c7827d889f6da3",
	}
	for algo, digest := range want {
		if hashes[algo] != digest {
			t.Fatalf("%s: got %s want %s", algo, hashes[algo], digest)
		}
	}
	if len(hashes["blake3"]) != 64 {
		t.Fatalf("unexpected blake3 digest %q", hashes["blake3"])
	}
	if _, ok := hashes["bogus"]; ok {
		t.Fatal("unsupported algorithm must be skipped")
	}
}

func TestComputeHashesMissingFile(t *testing.T) {
	hashes := ComputeHashes(filepath.Join(t.TempDir(), "missing"), []string{"sha256"})
	if len(hashes) != 0 {
		t.Fatalf("expected no hashes, got %v", hashes)
	}
	if hashes := ComputeHashes("", nil); len(hashes) != 0 {
		t.Fatal("expected empty map without algorithms")
	}
}
