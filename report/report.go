// Package report summarises burst groups for display and export.
package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"picpick/burst"
)

const (
	RoundHalfUp   = "half-up"
	RoundHalfEven = "half-even"
)

type Options struct {
	Rounding  string
	Threshold time.Duration
	Excluded  int
}

type GroupSummary struct {
	Index  int           `json:"index"`
	Count  int           `json:"photo_count"`
	Newest time.Time     `json:"newest"`
	Oldest time.Time     `json:"oldest"`
	Span   time.Duration `json:"span_ns"`
}

// Report is the outcome of a run. Average is nil when there are no groups.
type Report struct {
	Groups       []GroupSummary `json:"groups"`
	TotalEntries int            `json:"total_entries"`
	Excluded     int            `json:"excluded_entries"`
	Average      *int           `json:"average_group_size"`
	Rounding     string         `json:"rounding"`
	Threshold    time.Duration  `json:"threshold_ns"`
}

// Summarize builds the report for groups in their clustered order.
func Summarize(groups []burst.Group, opts Options) Report {
	mode := normalizeMode(opts.Rounding)
	rep := Report{
		Groups:    make([]GroupSummary, 0, len(groups)),
		Excluded:  opts.Excluded,
		Rounding:  mode,
		Threshold: opts.Threshold,
	}
	for i, g := range groups {
		rep.Groups = append(rep.Groups, GroupSummary{
			Index:  i + 1,
			Count:  g.Len(),
			Newest: g.Newest(),
			Oldest: g.Oldest(),
			Span:   g.Span(),
		})
		rep.TotalEntries += g.Len()
	}
	if len(groups) > 0 {
		avg := Round(rep.TotalEntries, len(groups), mode)
		rep.Average = &avg
	}
	return rep
}

// Round divides total by count and rounds to the nearest integer using mode.
// count must be positive.
func Round(total, count int, mode string) int {
	q := float64(total) / float64(count)
	if normalizeMode(mode) == RoundHalfEven {
		return int(math.RoundToEven(q))
	}
	return int(math.Floor(q + 0.5))
}

// AverageString renders the average, or n/a when there are no groups.
func (r Report) AverageString() string {
	if r.Average == nil {
		return "n/a (no groups)"
	}
	return fmt.Sprintf("%d", *r.Average)
}

// Lines renders the report for the console.
func (r Report) Lines() []string {
	lines := make([]string, 0, len(r.Groups)+2)
	for _, g := range r.Groups {
		noun := "photos"
		if g.Count == 1 {
			noun = "photo"
		}
		lines = append(lines, fmt.Sprintf("Group %d: %d %s", g.Index, g.Count, noun))
	}
	lines = append(lines, fmt.Sprintf("Average group size: %s", r.AverageString()))
	if r.Excluded > 0 {
		lines = append(lines, fmt.Sprintf("Skipped %d files without a capture timestamp", r.Excluded))
	}
	return lines
}

func (r Report) String() string {
	return strings.Join(r.Lines(), "\n")
}

func normalizeMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case RoundHalfEven:
		return RoundHalfEven
	default:
		return RoundHalfUp
	}
}
