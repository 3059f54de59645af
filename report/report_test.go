package report

import (
	"strings"
	"testing"
	"time"

	"picpick/burst"
)

var base = time.Date(2024, 7, 14, 18, 30, 0, 0, time.UTC)

func groupOf(offsets ...int) burst.Group {
	var g burst.Group
	for _, off := range offsets {
		g.Entries = append(g.Entries, burst.Entry{CaptureTime: base.Add(time.Duration(off) * time.Second)})
	}
	return g
}

func TestSummarizeExampleScenario(t *testing.T) {
	groups := []burst.Group{groupOf(0, -2, -4), groupOf(-12, -13)}

	up := Summarize(groups, Options{Threshold: burst.DefaultThreshold})
	if len(up.Groups) != 2 || up.Groups[0].Index != 1 || up.Groups[0].Count != 3 || up.Groups[1].Index != 2 || up.Groups[1].Count != 2 {
		t.Fatalf("unexpected groups %+v", up.Groups)
	}
	if up.TotalEntries != 5 {
		t.Fatalf("expected 5 entries, got %d", up.TotalEntries)
	}
	if up.Average == nil || *up.Average != 3 {
		t.Fatalf("half-up average of 5/2 should be 3, got %v", up.AverageString())
	}
	if up.Groups[0].Span != 4*time.Second || !up.Groups[1].Oldest.Equal(base.Add(-13*time.Second)) {
		t.Fatalf("unexpected group bounds %+v", up.Groups)
	}

	even := Summarize(groups, Options{Rounding: RoundHalfEven})
	if even.Average == nil || *even.Average != 2 {
		t.Fatalf("half-even average of 5/2 should be 2, got %v", even.AverageString())
	}
}

func TestRound(t *testing.T) {
	cases := []struct {
		total, count int
		mode         string
		want         int
	}{
		{5, 2, RoundHalfUp, 3},
		{5, 2, RoundHalfEven, 2},
		{7, 2, RoundHalfUp, 4},
		{7, 2, RoundHalfEven, 4},
		{10, 3, RoundHalfUp, 3},
		{11, 3, RoundHalfEven, 4},
		{4, 4, RoundHalfEven, 1},
		{5, 2, "", 3},
		{5, 2, "HALF-EVEN", 2},
	}
	for _, c := range cases {
		if got := Round(c.total, c.count, c.mode); got != c.want {
			t.Fatalf("Round(%d, %d, %q) = %d, want %d", c.total, c.count, c.mode, got, c.want)
		}
	}
}

func TestSummarizeNoGroups(t *testing.T) {
	rep := Summarize(nil, Options{Excluded: 3})
	if rep.Average != nil {
		t.Fatalf("expected undefined average, got %d", *rep.Average)
	}
	if len(rep.Groups) != 0 || rep.TotalEntries != 0 {
		t.Fatalf("unexpected report %+v", rep)
	}
	out := rep.String()
	if !strings.Contains(out, "Average group size: n/a") {
		t.Fatalf("expected explicit no-groups average, got %q", out)
	}
	if !strings.Contains(out, "Skipped 3 files") {
		t.Fatalf("expected excluded count, got %q", out)
	}
}

func TestLines(t *testing.T) {
	rep := Summarize([]burst.Group{groupOf(0, -1), groupOf(-20)}, Options{})
	want := []string{
		"Group 1: 2 photos",
		"Group 2: 1 photo",
		"Average group size: 2",
	}
	got := rep.Lines()
	if len(got) != len(want) {
		t.Fatalf("unexpected lines %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("line %d: got %q want %q", i, got[i], want[i])
		}
	}
}
