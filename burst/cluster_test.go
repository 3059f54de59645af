package burst

import (
	"fmt"
	"reflect"
	"testing"
	"time"
)

var base = time.Date(2024, 7, 14, 18, 30, 0, 0, time.UTC)

func entriesAt(offsets ...int) []Entry {
	entries := make([]Entry, 0, len(offsets))
	for i, off := range offsets {
		entries = append(entries, Entry{
			Path:        fmt.Sprintf("/photos/IMG_%04d.jpg", i),
			Name:        fmt.Sprintf("IMG_%04d.jpg", i),
			CaptureTime: base.Add(time.Duration(off) * time.Second),
		})
	}
	return entries
}

func groupSizes(groups []Group) []int {
	sizes := make([]int, 0, len(groups))
	for _, g := range groups {
		sizes = append(sizes, g.Len())
	}
	return sizes
}

func flatten(groups []Group) []Entry {
	var out []Entry
	for _, g := range groups {
		out = append(out, g.Entries...)
	}
	return out
}

func TestClusterExampleScenario(t *testing.T) {
	sorted := entriesAt(0, -2, -4, -12, -13)
	groups := Cluster(sorted, DefaultThreshold)
	if got := groupSizes(groups); !reflect.DeepEqual(got, []int{3, 2}) {
		t.Fatalf("unexpected group sizes %v", got)
	}
	if !groups[0].Newest().Equal(base) || !groups[1].Oldest().Equal(base.Add(-13*time.Second)) {
		t.Fatalf("unexpected group bounds: %v %v", groups[0].Newest(), groups[1].Oldest())
	}
	if groups[0].Span() != 4*time.Second {
		t.Fatalf("unexpected span %v", groups[0].Span())
	}
}

func TestClusterEmptyAndSingle(t *testing.T) {
	if groups := Cluster(nil, DefaultThreshold); len(groups) != 0 {
		t.Fatalf("expected no groups, got %d", len(groups))
	}
	groups := Cluster(entriesAt(0), DefaultThreshold)
	if len(groups) != 1 || groups[0].Len() != 1 {
		t.Fatalf("expected one singleton group, got %v", groupSizes(groups))
	}
}

func TestClusterThresholdBoundary(t *testing.T) {
	groups := Cluster(entriesAt(0, -5), DefaultThreshold)
	if len(groups) != 2 {
		t.Fatalf("gap equal to threshold must split, got %v", groupSizes(groups))
	}
	groups = Cluster(entriesAt(0, -4), DefaultThreshold)
	if len(groups) != 1 {
		t.Fatalf("gap below threshold must join, got %v", groupSizes(groups))
	}

	// threshold minus a fraction of a second truncates to 4 whole seconds
	sorted := []Entry{
		{Name: "a", CaptureTime: base},
		{Name: "b", CaptureTime: base.Add(-5*time.Second + time.Millisecond)},
	}
	if groups := Cluster(sorted, DefaultThreshold); len(groups) != 1 {
		t.Fatalf("threshold minus epsilon must join, got %v", groupSizes(groups))
	}
}

func TestClusterComparesAdjacentEntriesOnly(t *testing.T) {
	// every neighbour is 4s apart, so the run spans 20s but stays one group
	groups := Cluster(entriesAt(0, -4, -8, -12, -16, -20), DefaultThreshold)
	if len(groups) != 1 || groups[0].Len() != 6 {
		t.Fatalf("expected a single chained group, got %v", groupSizes(groups))
	}
}

func TestClusterNegativeGapStaysInGroup(t *testing.T) {
	// not descending: the gap from the first to the second entry is -60s
	sorted := entriesAt(0, 60, 0)
	groups := Cluster(sorted, DefaultThreshold)
	if got := groupSizes(groups); !reflect.DeepEqual(got, []int{2, 1}) {
		t.Fatalf("negative gap must not be treated as a split, got %v", got)
	}
	if GapSeconds(sorted[0], sorted[1]) != -60 {
		t.Fatalf("unexpected gap %d", GapSeconds(sorted[0], sorted[1]))
	}
}

func TestClusterPartitionAndMonotonicGrouping(t *testing.T) {
	offsets := []int{0, -1, -1, -3, -9, -10, -16, -17, -17, -30, -34, -39, -45, -46}
	for _, threshold := range []time.Duration{time.Second, 2 * time.Second, 5 * time.Second, 6 * time.Second, time.Hour} {
		sorted := entriesAt(offsets...)
		groups := Cluster(sorted, threshold)
		if !reflect.DeepEqual(flatten(groups), sorted) {
			t.Fatalf("threshold %v: groups do not reproduce the sorted input", threshold)
		}
		limit := int64(threshold / time.Second)
		for gi, g := range groups {
			if g.Len() == 0 {
				t.Fatalf("threshold %v: empty group %d", threshold, gi)
			}
			for i := 1; i < g.Len(); i++ {
				if gap := GapSeconds(g.Entries[i-1], g.Entries[i]); gap >= limit {
					t.Fatalf("threshold %v: in-group gap %d", threshold, gap)
				}
			}
			if gi > 0 {
				prev := groups[gi-1]
				if gap := GapSeconds(prev.Entries[prev.Len()-1], g.Entries[0]); gap < limit {
					t.Fatalf("threshold %v: boundary gap %d", threshold, gap)
				}
			}
		}
	}
}

func TestClusterIsDeterministic(t *testing.T) {
	sorted := entriesAt(0, -2, -9, -10, -20)
	first := Cluster(sorted, DefaultThreshold)
	second := Cluster(sorted, DefaultThreshold)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("clustering the same input twice gave different groups")
	}
}

func TestSortDescendingAndStable(t *testing.T) {
	entries := entriesAt(-10, 0, -5, 0, -10)
	sorted := Sort(entries)
	want := []string{"IMG_0001.jpg", "IMG_0003.jpg", "IMG_0002.jpg", "IMG_0000.jpg", "IMG_0004.jpg"}
	for i, e := range sorted {
		if e.Name != want[i] {
			t.Fatalf("position %d: got %s want %s", i, e.Name, want[i])
		}
	}
	if entries[0].Name != "IMG_0000.jpg" {
		t.Fatal("Sort must not reorder its input")
	}
	if !reflect.DeepEqual(Sort(entries), sorted) {
		t.Fatal("repeated sort is not stable")
	}
}
