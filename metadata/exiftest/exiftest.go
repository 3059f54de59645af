// Package exiftest builds minimal JPEG files carrying an EXIF block, for
// tests that need real decoder input without binary fixtures.
package exiftest

import (
	"bytes"
	"encoding/binary"
	"os"
	"testing"
	"time"
)

const exifLayout = "2006:01:02 15:04:05"

// Photo describes the tags written into the fixture. Zero values are omitted.
type Photo struct {
	Taken       time.Time
	RawDateTime string
	Width       int
	Height      int
	Orientation int
}

type ifdEntry struct {
	tag   uint16
	typ   uint16
	count uint32
	value uint32
	data  []byte
}

const (
	typeASCII = 2
	typeShort = 3
	typeLong  = 4
)

// JPEG returns the bytes of a JPEG stream with an APP1 EXIF segment.
func JPEG(p Photo) []byte {
	var ifd0, sub []ifdEntry
	if p.Orientation > 0 {
		ifd0 = append(ifd0, ifdEntry{tag: 0x0112, typ: typeShort, count: 1, value: uint32(p.Orientation)})
	}
	dt := p.RawDateTime
	if dt == "" && !p.Taken.IsZero() {
		dt = p.Taken.Format(exifLayout)
	}
	if dt != "" {
		b := append([]byte(dt), 0)
		sub = append(sub, ifdEntry{tag: 0x9003, typ: typeASCII, count: uint32(len(b)), data: b})
	}
	if p.Width > 0 {
		sub = append(sub, ifdEntry{tag: 0xA002, typ: typeLong, count: 1, value: uint32(p.Width)})
	}
	if p.Height > 0 {
		sub = append(sub, ifdEntry{tag: 0xA003, typ: typeLong, count: 1, value: uint32(p.Height)})
	}

	// IFD0 always carries the Exif sub-IFD pointer as its last entry.
	ifd0Size := 2 + 12*(len(ifd0)+1) + 4
	subOffset := 8 + ifd0Size
	subSize := 2 + 12*len(sub) + 4
	dataOffset := subOffset + subSize
	ifd0 = append(ifd0, ifdEntry{tag: 0x8769, typ: typeLong, count: 1, value: uint32(subOffset)})

	le := binary.LittleEndian
	tiff := &bytes.Buffer{}
	tiff.WriteString("II")
	_ = binary.Write(tiff, le, uint16(42))
	_ = binary.Write(tiff, le, uint32(8))

	var extra bytes.Buffer
	writeIFD := func(entries []ifdEntry) {
		_ = binary.Write(tiff, le, uint16(len(entries)))
		for _, e := range entries {
			_ = binary.Write(tiff, le, e.tag)
			_ = binary.Write(tiff, le, e.typ)
			_ = binary.Write(tiff, le, e.count)
			switch {
			case e.data != nil && len(e.data) > 4:
				_ = binary.Write(tiff, le, uint32(dataOffset+extra.Len()))
				extra.Write(e.data)
			case e.data != nil:
				var inline [4]byte
				copy(inline[:], e.data)
				tiff.Write(inline[:])
			case e.typ == typeShort:
				_ = binary.Write(tiff, le, uint16(e.value))
				_ = binary.Write(tiff, le, uint16(0))
			default:
				_ = binary.Write(tiff, le, e.value)
			}
		}
		_ = binary.Write(tiff, le, uint32(0))
	}
	writeIFD(ifd0)
	writeIFD(sub)
	tiff.Write(extra.Bytes())

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)
	out := &bytes.Buffer{}
	out.Write([]byte{0xFF, 0xD8, 0xFF, 0xE1})
	_ = binary.Write(out, binary.BigEndian, uint16(len(payload)+2))
	out.Write(payload)
	out.Write([]byte{0xFF, 0xD9})
	return out.Bytes()
}

// WriteJPEG writes a fixture to path and fails the test on error.
func WriteJPEG(t testing.TB, path string, p Photo) {
	t.Helper()
	if err := os.WriteFile(path, JPEG(p), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", path, err)
	}
}
