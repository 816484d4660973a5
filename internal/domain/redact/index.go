package redact

import (
	"strconv"

	"github.com/corey/silencio/internal/ports"
)

// BuilderFunc creates a fresh pattern index builder (e.g. ahocorasick.NewBuilder).
type BuilderFunc func() ports.PatternIndexBuilder

// Index is the immutable searchable form of a row set. It can be reused for
// any number of documents and shared between goroutines.
type Index struct {
	patterns ports.PatternIndex // nil when no row contributed a non-empty string
	rows     int
}

// Empty reports whether a scan over this index can never match.
func (x *Index) Empty() bool {
	return x == nil || x.patterns == nil || x.patterns.Len() == 0
}

// Rows returns the number of rows the index was built from.
func (x *Index) Rows() int {
	if x == nil {
		return 0
	}
	return x.rows
}

// Patterns returns the number of distinct strings in the index.
func (x *Index) Patterns() int {
	if x.Empty() {
		return 0
	}
	return x.patterns.Len()
}

// BuildIndex validates rows and indexes every non-empty canonical or alias
// string, tagging each with its row's number, code and description.
//
// Rows must carry positive, unique numbers; otherwise an *InputError wrapping
// ErrInvalidInput is returned. Empty strings are silently excluded. If two rows
// contribute the identical string both payloads are kept; Select decides.
func BuildIndex(newBuilder BuilderFunc, rows []TargetRow) (*Index, error) {
	if err := validateRows(rows); err != nil {
		return nil, err
	}

	idx := &Index{rows: len(rows)}
	var b ports.PatternIndexBuilder
	for _, row := range rows {
		for _, s := range row.Surfaces() {
			if b == nil {
				b = newBuilder()
			}
			b.Insert(s, ports.Payload{
				RowNumber:   row.Number,
				Code:        row.Code,
				Description: row.Description,
				Pattern:     s,
			})
		}
	}
	if b != nil {
		idx.patterns = b.Build()
	}
	return idx, nil
}

func validateRows(rows []TargetRow) error {
	seen := make(map[int]int, len(rows))
	for i, row := range rows {
		if row.Number <= 0 {
			return &InputError{Row: i, Number: row.Number, Reason: "number must be positive"}
		}
		if prev, ok := seen[row.Number]; ok {
			return &InputError{Row: i, Number: row.Number, Reason: "number already used by row " + strconv.Itoa(prev)}
		}
		seen[row.Number] = i
	}
	return nil
}
