package ports

// PatternIndexBuilder collects literal patterns for a multi-pattern index
// (Aho-Corasick). Insert may be called any number of times before Build;
// the same pattern string may be inserted with several payloads and every
// payload must be reported when that string occurs.
//
// A builder is single-use and not safe for concurrent Insert calls.
type PatternIndexBuilder interface {
	// Insert registers pattern with the given payload. Empty patterns are
	// the caller's responsibility to filter; adapters may ignore them.
	Insert(pattern string, payload Payload)

	// Build compiles the automaton. The returned index is immutable.
	Build() PatternIndex
}

// PatternIndex finds every occurrence of every registered pattern in a single
// pass over the text. This is O(n + m + z) where n=text length, m=total
// pattern length, z=number of matches.
//
// Implementations must support concurrent ScanAll calls.
type PatternIndex interface {
	// ScanAll returns one Hit per (occurrence, payload), including occurrences
	// nested inside or overlapping other occurrences. Order is unspecified.
	// Matching is exact and case-sensitive.
	ScanAll(text string) []Hit

	// Len returns the number of distinct pattern strings in the index.
	Len() int
}

// Payload is the data attached to one inserted pattern.
type Payload struct {
	RowNumber   int    // display label of the owning row
	Code        string // category code, carried through verbatim
	Description string // short label, carried through verbatim
	Pattern     string // the literal pattern text
}

// Hit is a raw occurrence reported by a PatternIndex.
type Hit struct {
	End     int // byte offset one past the last matched byte
	Payload Payload
}
