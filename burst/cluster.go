// Package burst groups photos into runs taken in quick succession.
//
// Entries are ordered newest first and split wherever the gap between two
// neighbours reaches the threshold. Only the immediately preceding entry is
// compared, so a long burst can span far more than the threshold as long as
// no single gap does.
package burst

import (
	"sort"
	"time"
)

// DefaultThreshold is the gap at which a new group starts.
const DefaultThreshold = 5 * time.Second

// Group is a non-empty run of entries in newest-first order.
type Group struct {
	Entries []Entry
}

func (g Group) Len() int {
	return len(g.Entries)
}

// Newest returns the capture time of the first entry.
func (g Group) Newest() time.Time {
	if len(g.Entries) == 0 {
		return time.Time{}
	}
	return g.Entries[0].CaptureTime
}

// Oldest returns the capture time of the last entry.
func (g Group) Oldest() time.Time {
	if len(g.Entries) == 0 {
		return time.Time{}
	}
	return g.Entries[len(g.Entries)-1].CaptureTime
}

func (g Group) Span() time.Duration {
	return g.Newest().Sub(g.Oldest())
}

// Sort returns a copy of entries ordered by capture time, newest first.
// Equal timestamps keep their input order.
func Sort(entries []Entry) []Entry {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CaptureTime.After(sorted[j].CaptureTime)
	})
	return sorted
}

// GapSeconds is the whole number of seconds by which prev is later than cur,
// truncated toward zero. It is negative when cur is the later one.
func GapSeconds(prev, cur Entry) int64 {
	return int64(prev.CaptureTime.Sub(cur.CaptureTime) / time.Second)
}

// Cluster partitions sorted entries into groups. An entry joins the open
// group when its gap to the preceding entry is strictly below threshold;
// otherwise it starts a new group.
func Cluster(sorted []Entry, threshold time.Duration) []Group {
	if len(sorted) == 0 {
		return nil
	}
	limit := int64(threshold / time.Second)

	groups := []Group{{Entries: []Entry{sorted[0]}}}
	for i := 1; i < len(sorted); i++ {
		if GapSeconds(sorted[i-1], sorted[i]) < limit {
			last := &groups[len(groups)-1]
			last.Entries = append(last.Entries, sorted[i])
			continue
		}
		groups = append(groups, Group{Entries: []Entry{sorted[i]}})
	}
	return groups
}
