// Package tags reads placeholder tags back out of redacted text and renders
// documents as alternating plain/tagged segments.
//
// Tag grammar (as written by the redaction engine):
//
//	[REDACTED(#12): (3)(B)(c), internal domain]
//
// The "(#N)" part is optional for hand-written tags, and the third code level
// is optional: "[REDACTED: (2)(C), project]" is also a tag.
package tags

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/corey/silencio/internal/domain/redact"
)

var tagRe = regexp.MustCompile(`\[REDACTED(?:\(#([0-9]+)\))?: \(([0-9]+)\)\(([A-Z])\)(?:\(([a-z])\))?, (.*?)\]`)

// Tag is one placeholder found in redacted text.
type Tag struct {
	Start       int    `json:"start"`
	End         int    `json:"end"`
	Number      int    `json:"number,omitempty"` // 0 when the tag carries no number
	Code        string `json:"code"`             // reassembled, e.g. "(3)(B)(c)"
	Category    string `json:"category"`         // first level digit, e.g. "3"
	Group       string `json:"group"`            // second level letter, e.g. "B"
	Sub         string `json:"sub,omitempty"`    // third level letter, may be empty
	Description string `json:"desc"`
	Text        string `json:"text"`
}

// Find returns every tag in text, ordered by position.
func Find(text string) []Tag {
	locs := tagRe.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	out := make([]Tag, 0, len(locs))
	for _, loc := range locs {
		group := func(i int) string {
			if loc[2*i] < 0 {
				return ""
			}
			return text[loc[2*i]:loc[2*i+1]]
		}
		t := Tag{
			Start:       loc[0],
			End:         loc[1],
			Category:    group(2),
			Group:       group(3),
			Sub:         group(4),
			Description: group(5),
			Text:        text[loc[0]:loc[1]],
		}
		if n := group(1); n != "" {
			t.Number, _ = strconv.Atoi(n)
		}
		t.Code = "(" + t.Category + ")(" + t.Group + ")"
		if t.Sub != "" {
			t.Code += "(" + t.Sub + ")"
		}
		out = append(out, t)
	}
	return out
}

// Highlight rewrites every tag in text through wrap, leaving the rest intact.
func Highlight(text string, wrap func(tag string) string) string {
	return tagRe.ReplaceAllStringFunc(text, wrap)
}

// Segment is one piece of a rendered document: either untouched text or a
// matched span with its category code.
type Segment struct {
	Text   string `json:"text"`
	Tagged bool   `json:"tagged"`
	Code   string `json:"code,omitempty"`
	Number int    `json:"number,omitempty"`
}

// Segments splits document into alternating plain and tagged segments using
// the match report of a redaction (offsets into document). Empty plain
// segments are omitted.
func Segments(document string, matches []redact.Match) []Segment {
	sorted := make([]redact.Match, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var out []Segment
	cursor := 0
	for _, m := range sorted {
		if cursor < m.Start {
			out = append(out, Segment{Text: document[cursor:m.Start]})
		}
		out = append(out, Segment{Text: m.SurfaceText, Tagged: true, Code: m.Code, Number: m.RowNumber})
		cursor = m.End
	}
	if cursor < len(document) {
		out = append(out, Segment{Text: document[cursor:]})
	}
	return out
}
