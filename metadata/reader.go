package metadata

import (
	"bufio"
	"errors"
	"io"
	"os"

	"picpick/logger"

	"golang.org/x/exp/mmap"
)

const (
	ReadModeAuto   = "auto"
	ReadModeStream = "stream"
	ReadModeMmap   = "mmap"
)

var (
	errIsDir      = errors.New("is a directory")
	errNotRegular = errors.New("not a regular file")
)

type source struct {
	io.Reader
	closeFn func() error
}

func (s *source) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

func openSource(path string, opts Options) (*source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, errIsDir
	}
	// Opening a FIFO or device blocks until a writer shows up.
	if !info.Mode().IsRegular() {
		return nil, errNotRegular
	}

	if shouldMmap(opts, info.Size()) {
		ra, err := mmap.Open(path)
		if err == nil {
			r := io.NewSectionReader(ra, 0, int64(ra.Len()))
			return &source{Reader: limitReader(r, opts.MaxBytes), closeFn: ra.Close}, nil
		}
		logger.Debugf("mmap failed for %s, falling back to stream: %v", path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &source{Reader: limitReader(bufio.NewReader(f), opts.MaxBytes), closeFn: f.Close}, nil
}

func shouldMmap(opts Options, size int64) bool {
	switch opts.ReadMode {
	case ReadModeMmap:
		return size > 0
	case ReadModeAuto:
		return opts.MmapMinSize > 0 && size >= opts.MmapMinSize
	default:
		return false
	}
}

func limitReader(r io.Reader, maxBytes int64) io.Reader {
	if maxBytes > 0 {
		return io.LimitReader(r, maxBytes)
	}
	return r
}
