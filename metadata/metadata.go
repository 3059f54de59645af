package metadata

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"picpick/logger"

	"github.com/h2non/filetype"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// Field names used downstream of extraction.
const (
	FieldDateTimeOriginal = string(exif.DateTimeOriginal)
	FieldPixelXDimension  = string(exif.PixelXDimension)
	FieldPixelYDimension  = string(exif.PixelYDimension)
	FieldOrientation      = string(exif.Orientation)
)

// sniffLen matches the header size filetype needs to recognise every kind.
const sniffLen = 261

var errNotImage = errors.New("not an image")

// unreadableContainers maps image types that keep EXIF in a box or chunk the
// decoder does not parse to the name shown in the one-time notice.
var unreadableContainers = map[string]string{
	"image/heif": "HEIC/HEIF",
	"image/png":  "PNG",
}

var (
	noticeMu sync.Mutex
	noticed  = map[string]bool{}
)

// Options bound how much work a single extraction may do.
type Options struct {
	MaxBytes    int64
	ReadMode    string
	MmapMinSize int64
}

// Result pairs a file with its decoded metadata. Fields is nil when nothing
// could be decoded.
type Result struct {
	Path     string
	Name     string
	MimeType string
	Fields   map[string]interface{}
}

// HasMetadata reports whether extraction produced a metadata mapping.
func (r Result) HasMetadata() bool {
	return r.Fields != nil
}

// String returns the named field as a string when it was decoded as one.
func (r Result) String(name string) (string, bool) {
	v, ok := r.Fields[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Int returns the named field when it was decoded as a single integer.
func (r Result) Int(name string) (int, bool) {
	v, ok := r.Fields[name]
	if !ok {
		return 0, false
	}
	i, ok := v.(int)
	return i, ok
}

// Extract decodes the EXIF block of path. It never fails: any error is
// logged at debug level and reported as a Result without metadata.
func Extract(path string, opts Options) Result {
	res := Result{Path: path, Name: filepath.Base(path)}
	fields, mime, err := extract(path, opts)
	res.MimeType = mime
	if err != nil {
		noteUnreadableContainer(mime)
		if logger.IsDebug() {
			logger.Debugf("No metadata for %s: %v", path, err)
		}
		return res
	}
	res.Fields = fields
	return res
}

// noteUnreadableContainer logs once per image type that such photos are
// counted as excluded. It reports whether it logged.
func noteUnreadableContainer(mime string) bool {
	format, ok := unreadableContainers[mime]
	if !ok {
		return false
	}
	noticeMu.Lock()
	defer noticeMu.Unlock()
	if noticed[mime] {
		return false
	}
	noticed[mime] = true
	logger.Infof("%s photos carry no EXIF readable here and are counted as excluded", format)
	return true
}

func extract(path string, opts Options) (fields map[string]interface{}, mime string, err error) {
	defer func() {
		if r := recover(); r != nil {
			fields = nil
			err = fmt.Errorf("exif decoder panic: %v", r)
		}
	}()

	src, err := openSource(path, opts)
	if err != nil {
		return nil, "", err
	}
	defer src.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(src, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, "", err
	}
	head = head[:n]

	mime = "unknown"
	if kind, _ := filetype.Match(head); kind != filetype.Unknown && kind.MIME.Value != "" {
		mime = kind.MIME.Value
		if kind.MIME.Type != "image" {
			return nil, mime, errNotImage
		}
	}

	x, err := exif.Decode(io.MultiReader(bytes.NewReader(head), src))
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return nil, mime, err
	}

	collector := fieldCollector{}
	if err := x.Walk(collector); err != nil {
		return nil, mime, err
	}
	return collector, mime, nil
}

type fieldCollector map[string]interface{}

func (c fieldCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if tag == nil {
		return nil
	}
	c[string(name)] = tagValue(tag)
	return nil
}

func tagValue(tag *tiff.Tag) interface{} {
	switch tag.Format() {
	case tiff.StringVal:
		s, err := tag.StringVal()
		if err == nil {
			return strings.TrimRight(s, "\x00 ")
		}
	case tiff.IntVal:
		if tag.Count == 1 {
			if v, err := tag.Int(0); err == nil {
				return v
			}
		}
	}
	return strings.Trim(tag.String(), `"`)
}
