package output

import (
	"time"

	"picpick/burst"
	"picpick/fuzzy"
	"picpick/hasher"
	"picpick/logger"

	"github.com/djherbis/times"
)

// PhotoRecord describes one grouped photo in the exported report.
type PhotoRecord struct {
	Group        int               `json:"group"`
	Position     int               `json:"position"`
	Path         string            `json:"path"`
	Name         string            `json:"name"`
	MimeType     string            `json:"mime_type,omitempty"`
	CaptureTime  string            `json:"capture_time"`
	Width        *int              `json:"width,omitempty"`
	Height       *int              `json:"height,omitempty"`
	Orientation  *int              `json:"orientation,omitempty"`
	ModTime      string            `json:"mod_time,omitempty"`
	CreationTime string            `json:"creation_time,omitempty"`
	AccessTime   string            `json:"access_time,omitempty"`
	Hashes       map[string]string `json:"hashes,omitempty"`
	FuzzyHashes  map[string]string `json:"fuzzy_hashes,omitempty"`
}

// SummaryRecord is the closing aggregate of a report.
type SummaryRecord struct {
	GroupCount       int    `json:"group_count"`
	TotalEntries     int    `json:"total_entries"`
	ExcludedEntries  int    `json:"excluded_entries"`
	AverageGroupSize *int   `json:"average_group_size"`
	Rounding         string `json:"rounding"`
	ThresholdSeconds int64  `json:"threshold_seconds"`
}

// RecordOptions selects the optional per-file enrichment of photo records.
type RecordOptions struct {
	HashAlgorithms []string
	FuzzyHash      bool
}

// PhotoRecords flattens groups into records, numbering groups from 1 and
// positions within a group from 1 in newest-first order.
func PhotoRecords(groups []burst.Group, opts RecordOptions) []PhotoRecord {
	var records []PhotoRecord
	for gi, g := range groups {
		for pi, e := range g.Entries {
			records = append(records, photoRecord(e, gi+1, pi+1, opts))
		}
	}
	return records
}

func photoRecord(e burst.Entry, group, position int, opts RecordOptions) PhotoRecord {
	rec := PhotoRecord{
		Group:       group,
		Position:    position,
		Path:        e.Path,
		Name:        e.Name,
		MimeType:    e.MimeType,
		CaptureTime: e.CaptureTime.Format(time.RFC3339),
		Width:       e.Width,
		Height:      e.Height,
		Orientation: e.Orientation,
	}
	if ft, err := fileTimes(e.Path); err == nil {
		rec.ModTime = ft.ModTime
		rec.CreationTime = ft.CreationTime
		rec.AccessTime = ft.AccessTime
	} else {
		logger.Debugf("Failed to read file times for %s: %v", e.Path, err)
	}
	if len(opts.HashAlgorithms) > 0 {
		rec.Hashes = hasher.ComputeHashes(e.Path, opts.HashAlgorithms)
	}
	if opts.FuzzyHash {
		rec.FuzzyHashes = fuzzy.HashAll(e.Path)
	}
	return rec
}

type fileTimeSet struct {
	ModTime      string
	CreationTime string
	AccessTime   string
}

func fileTimes(path string) (fileTimeSet, error) {
	ts, err := times.Stat(path)
	if err != nil {
		return fileTimeSet{}, err
	}
	result := fileTimeSet{
		ModTime:    ts.ModTime().Format(time.RFC3339),
		AccessTime: ts.AccessTime().Format(time.RFC3339),
	}
	if ts.HasBirthTime() {
		result.CreationTime = ts.BirthTime().Format(time.RFC3339)
	}
	return result, nil
}
