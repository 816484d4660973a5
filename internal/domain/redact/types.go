// Package redact is the scan-and-substitute core: it builds a multi-pattern
// index from a per-call set of target rows, scans a document once, resolves
// overlapping occurrences leftmost-longest and rewrites every selected span
// with a numbered placeholder tag.
//
// Pipeline: rows -> Index -> []RawMatch -> []Match -> (text, []Match).
// Every offset is a byte offset into the original document (end-exclusive).
package redact

// TargetRow is one sensitive item to redact.
type TargetRow struct {
	Number        int      `json:"number" yaml:"number"`                       // display label, positive and unique per call
	CanonicalText string   `json:"item" yaml:"item"`                           // primary surface string; empty is ignored
	Aliases       []string `json:"aliases,omitempty" yaml:"aliases,omitempty"` // alternate surface strings
	Code          string   `json:"code" yaml:"code"`                           // category code, opaque
	Description   string   `json:"desc" yaml:"desc"`                           // short label, opaque
}

// Surfaces returns the set {CanonicalText} ∪ Aliases in first-seen order,
// with empty strings removed.
func (r TargetRow) Surfaces() []string {
	seen := make(map[string]struct{}, len(r.Aliases)+1)
	out := make([]string, 0, len(r.Aliases)+1)
	add := func(s string) {
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	add(r.CanonicalText)
	for _, a := range r.Aliases {
		add(a)
	}
	return out
}

// RawMatch is one occurrence of an indexed string, before conflict resolution.
// Invariant: End-Start == len(SurfaceText).
type RawMatch struct {
	Start       int    `json:"start"`
	End         int    `json:"end"` // exclusive
	RowNumber   int    `json:"number"`
	Code        string `json:"code"`
	Description string `json:"desc"`
	SurfaceText string `json:"surface"`
}

// Len returns the span length in bytes.
func (m RawMatch) Len() int {
	return m.End - m.Start
}

// Overlaps reports whether m and o share at least one byte.
func (m RawMatch) Overlaps(o RawMatch) bool {
	return m.Start < o.End && o.Start < m.End
}

// Match is a RawMatch selected for substitution. A slice of Matches returned
// by this package is ordered by Start and pairwise non-overlapping.
type Match = RawMatch

// Result is the output of one redaction call.
type Result struct {
	RedactedText string  `json:"redacted_text"`
	Matches      []Match `json:"matches"` // offsets refer to the original document
}
