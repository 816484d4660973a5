package redact

import (
	"fmt"
	"sort"
	"strings"
)

// TieBreak decides which row wins when two candidates cover exactly the same
// span, which only happens when two rows register the identical string.
type TieBreak int

const (
	// LowerRowWins keeps the candidate with the smaller row number (default).
	LowerRowWins TieBreak = iota
	// HigherRowWins keeps the candidate with the larger row number.
	HigherRowWins
)

func (t TieBreak) String() string {
	switch t {
	case HigherRowWins:
		return "higher-row"
	default:
		return "lower-row"
	}
}

// ParseTieBreak accepts "lower-row"/"lower" and "higher-row"/"higher".
// The empty string selects LowerRowWins.
func ParseTieBreak(s string) (TieBreak, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lower", "lower-row":
		return LowerRowWins, nil
	case "higher", "higher-row":
		return HigherRowWins, nil
	}
	return LowerRowWins, fmt.Errorf("unknown tie-break %q (want lower-row or higher-row)", s)
}

// Select reduces raw to a non-overlapping subset, leftmost-longest.
//
// Candidates are ordered by start ascending, then length descending, then row
// number per tb. A single sweep accepts a candidate iff it starts at or after
// the end of the last accepted one. The result is ordered by Start.
// raw is not modified.
func Select(raw []RawMatch, tb TieBreak) []Match {
	if len(raw) == 0 {
		return nil
	}
	sorted := make([]RawMatch, len(raw))
	copy(sorted, raw)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.Len() != b.Len() {
			return a.Len() > b.Len()
		}
		if tb == HigherRowWins {
			return a.RowNumber > b.RowNumber
		}
		return a.RowNumber < b.RowNumber
	})

	selected := make([]Match, 0, len(sorted))
	lastEnd := -1
	for _, m := range sorted {
		if m.Start >= lastEnd {
			selected = append(selected, m)
			lastEnd = m.End
		}
		// else: overlaps an earlier-or-equal start that is at least as long
	}
	return selected
}
