package redact

import (
	"strconv"
	"strings"
)

// FormatTag renders the placeholder for m:
//
//	[REDACTED(#<number>): <code>, <description>]
//
// Code and description are copied verbatim, no escaping.
func FormatTag(m Match) string {
	var sb strings.Builder
	sb.Grow(len("[REDACTED(#): , ]") + 4 + len(m.Code) + len(m.Description))
	sb.WriteString("[REDACTED(#")
	sb.WriteString(strconv.Itoa(m.RowNumber))
	sb.WriteString("): ")
	sb.WriteString(m.Code)
	sb.WriteString(", ")
	sb.WriteString(m.Description)
	sb.WriteString("]")
	return sb.String()
}

// Apply rewrites document, replacing each selected span with its tag.
// selected must be ordered by Start and non-overlapping (as returned by
// Select). Pieces are produced right to left so that offsets, which refer to
// the original document, stay valid. The same selected slice is returned.
func Apply(document string, selected []Match) (string, []Match) {
	if len(selected) == 0 {
		return document, selected
	}

	// pieces holds, in reverse: tail, tag, gap, tag, ..., prefix.
	pieces := make([]string, 0, 2*len(selected)+1)
	cursor := len(document)
	for i := len(selected) - 1; i >= 0; i-- {
		m := selected[i]
		pieces = append(pieces, document[m.End:cursor], FormatTag(m))
		cursor = m.Start
	}
	pieces = append(pieces, document[:cursor])

	size := 0
	for _, p := range pieces {
		size += len(p)
	}
	var sb strings.Builder
	sb.Grow(size)
	for i := len(pieces) - 1; i >= 0; i-- {
		sb.WriteString(pieces[i])
	}
	return sb.String(), selected
}
