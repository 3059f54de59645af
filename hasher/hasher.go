package hasher

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"sync"

	"picpick/logger"

	"github.com/cespare/xxhash/v2"
	"lukechampine.com/blake3"
)

const hashBufferSize = 128 * 1024

var hashBufferPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, hashBufferSize)
		return &buf
	},
}

// New returns a hash for a supported algorithm name.
func New(algo string) (hash.Hash, bool) {
	switch algo {
	case "md5":
		return md5.New(), true
	case "sha1":
		return sha1.New(), true
	case "sha256":
		return sha256.New(), true
	case "blake3":
		return blake3.New(32, nil), true
	case "xxhash":
		return xxhash.New(), true
	default:
		return nil, false
	}
}

// ComputeHashes reads path once and returns the hex digest for each
// supported algorithm. Unknown algorithms are skipped with a warning.
func ComputeHashes(path string, algorithms []string) map[string]string {
	hashes := make(map[string]string, len(algorithms))
	if len(algorithms) == 0 {
		return hashes
	}

	type hasherEntry struct {
		name string
		h    hash.Hash
	}
	hashers := make([]hasherEntry, 0, len(algorithms))
	writers := make([]io.Writer, 0, len(algorithms))
	seen := make(map[string]struct{}, len(algorithms))
	for _, algo := range algorithms {
		if _, ok := seen[algo]; ok {
			continue
		}
		h, ok := New(algo)
		if !ok {
			logger.Warnf("Unsupported hash algorithm: %s", algo)
			continue
		}
		seen[algo] = struct{}{}
		hashers = append(hashers, hasherEntry{name: algo, h: h})
		writers = append(writers, h)
	}
	if len(hashers) == 0 {
		return hashes
	}

	file, err := os.Open(path)
	if err != nil {
		logger.Warnf("Failed to open file for hashing %s: %v", path, err)
		return hashes
	}
	defer file.Close()

	bufferPtr := hashBufferPool.Get().(*[]byte)
	defer hashBufferPool.Put(bufferPtr)
	if _, err := io.CopyBuffer(io.MultiWriter(writers...), file, *bufferPtr); err != nil {
		logger.Warnf("Failed to compute hashes for %s: %v", path, err)
		return hashes
	}

	for i := range hashers {
		hashes[hashers[i].name] = hex.EncodeToString(hashers[i].h.Sum(nil))
	}
	return hashes
}
