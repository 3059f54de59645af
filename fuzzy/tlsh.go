package fuzzy

import (
	"bufio"
	"fmt"
	"os"

	"github.com/glaslos/tlsh"
)

// tlshMinSize is the smallest input TLSH produces a digest for.
const tlshMinSize = 50

type TLSHHasher struct{}

func (h TLSHHasher) Name() string {
	return "tlsh"
}

func (h TLSHHasher) HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if info.Size() < tlshMinSize {
		return "", fmt.Errorf("file too small for tlsh: %d bytes", info.Size())
	}

	hash, err := tlsh.HashReader(bufio.NewReader(f))
	if err != nil {
		return "", err
	}
	return hash.String(), nil
}

func init() {
	Register(TLSHHasher{})
}
