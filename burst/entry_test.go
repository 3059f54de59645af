package burst

import (
	"testing"
	"time"

	"picpick/metadata"
)

func TestParseCaptureTime(t *testing.T) {
	loc := time.FixedZone("test", 2*3600)
	cases := map[string]time.Time{
		"2024:07:14 18:30:00":       time.Date(2024, 7, 14, 18, 30, 0, 0, loc),
		"2024:07:14 18:30:00\x00":   time.Date(2024, 7, 14, 18, 30, 0, 0, loc),
		"2024-07-14T18:30:00Z":      time.Date(2024, 7, 14, 18, 30, 0, 0, time.UTC),
		"2024-07-14T18:30:00+01:00": time.Date(2024, 7, 14, 17, 30, 0, 0, time.UTC),
		"2024-07-14 18:30:00":       time.Date(2024, 7, 14, 18, 30, 0, 0, loc),
	}
	for input, want := range cases {
		got, ok := ParseCaptureTime(input, loc)
		if !ok {
			t.Fatalf("failed to parse %q", input)
		}
		if !got.Equal(want) {
			t.Fatalf("%q: got %v want %v", input, got, want)
		}
	}
	for _, bad := range []string{"", "   ", "0000:00:00 00:00:00", "yesterday"} {
		if _, ok := ParseCaptureTime(bad, loc); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestEligibleAndFilter(t *testing.T) {
	results := []metadata.Result{
		{Path: "/a.jpg", Name: "a.jpg", MimeType: "image/jpeg", Fields: map[string]interface{}{
			metadata.FieldDateTimeOriginal: "2024:07:14 18:30:00",
			metadata.FieldPixelXDimension:  4000,
			metadata.FieldPixelYDimension:  3000,
			metadata.FieldOrientation:      1,
		}},
		{Path: "/b.txt", Name: "b.txt"},
		{Path: "/c.jpg", Name: "c.jpg", Fields: map[string]interface{}{}},
		{Path: "/d.jpg", Name: "d.jpg", Fields: map[string]interface{}{metadata.FieldDateTimeOriginal: "not a date"}},
		{Path: "/e.jpg", Name: "e.jpg", Fields: map[string]interface{}{metadata.FieldDateTimeOriginal: 42}},
		{Path: "/f.jpg", Name: "f.jpg", Fields: map[string]interface{}{metadata.FieldDateTimeOriginal: "2024:07:14 18:29:58"}},
	}
	entries, excluded := Filter(results, time.UTC)
	if excluded != 4 {
		t.Fatalf("expected 4 excluded, got %d", excluded)
	}
	if len(entries) != 2 || entries[0].Name != "a.jpg" || entries[1].Name != "f.jpg" {
		t.Fatalf("unexpected entries %+v", entries)
	}
	a := entries[0]
	if a.Width == nil || *a.Width != 4000 || a.Height == nil || *a.Height != 3000 || a.Orientation == nil || *a.Orientation != 1 {
		t.Fatalf("optional fields not copied: %+v", a)
	}
	if entries[1].Width != nil || entries[1].Orientation != nil {
		t.Fatal("absent optional fields must stay nil")
	}
}
