package redact

// Scan streams document once through idx and returns every occurrence of
// every indexed string, one RawMatch per (occurrence, owning row). Nested and
// overlapping occurrences are all included. Order is unspecified; Select
// imposes it.
func Scan(idx *Index, document string) []RawMatch {
	if idx.Empty() || document == "" {
		return nil
	}
	hits := idx.patterns.ScanAll(document)
	if len(hits) == 0 {
		return nil
	}
	out := make([]RawMatch, 0, len(hits))
	for _, h := range hits {
		p := h.Payload
		out = append(out, RawMatch{
			Start:       h.End - len(p.Pattern),
			End:         h.End,
			RowNumber:   p.RowNumber,
			Code:        p.Code,
			Description: p.Description,
			SurfaceText: p.Pattern,
		})
	}
	return out
}
