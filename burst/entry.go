package burst

import (
	"strings"
	"time"

	"picpick/metadata"
)

// Entry is a photo whose capture time is known.
type Entry struct {
	Path        string
	Name        string
	MimeType    string
	CaptureTime time.Time
	Width       *int
	Height      *int
	Orientation *int
}

var captureLayouts = []string{
	"2006:01:02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseCaptureTime parses a DateTimeOriginal value. Values without a zone
// are interpreted in loc.
func ParseCaptureTime(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(strings.TrimRight(value, "\x00"))
	if value == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range captureLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Eligible converts an extraction result into an Entry when it carries a
// parseable capture timestamp.
func Eligible(r metadata.Result, loc *time.Location) (Entry, bool) {
	if !r.HasMetadata() {
		return Entry{}, false
	}
	raw, ok := r.String(metadata.FieldDateTimeOriginal)
	if !ok {
		return Entry{}, false
	}
	taken, ok := ParseCaptureTime(raw, loc)
	if !ok {
		return Entry{}, false
	}
	return Entry{
		Path:        r.Path,
		Name:        r.Name,
		MimeType:    r.MimeType,
		CaptureTime: taken,
		Width:       optionalInt(r, metadata.FieldPixelXDimension),
		Height:      optionalInt(r, metadata.FieldPixelYDimension),
		Orientation: optionalInt(r, metadata.FieldOrientation),
	}, true
}

// Filter keeps the eligible results in their original order and returns how
// many were dropped.
func Filter(results []metadata.Result, loc *time.Location) ([]Entry, int) {
	entries := make([]Entry, 0, len(results))
	excluded := 0
	for _, r := range results {
		e, ok := Eligible(r, loc)
		if !ok {
			excluded++
			continue
		}
		entries = append(entries, e)
	}
	return entries, excluded
}

func optionalInt(r metadata.Result, name string) *int {
	v, ok := r.Int(name)
	if !ok {
		return nil
	}
	return &v
}
