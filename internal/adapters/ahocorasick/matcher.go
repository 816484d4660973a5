// Package ahocorasick provides multi-pattern string matching using an Aho-Corasick automaton.
// It wraps the petar-dambovaliev/aho-corasick library for O(n + m + z) matching.
package ahocorasick

import (
	aho "github.com/petar-dambovaliev/aho-corasick"

	"github.com/corey/silencio/internal/ports"
)

// Builder implements ports.PatternIndexBuilder.
// Identical pattern strings are collapsed into a single automaton pattern that
// carries every payload inserted for it, in insertion order.
type Builder struct {
	patterns []string
	payloads [][]ports.Payload
	slot     map[string]int // pattern -> index into patterns/payloads
}

// NewBuilder returns an empty builder. Its signature matches the factory the
// redaction engine expects.
func NewBuilder() ports.PatternIndexBuilder {
	return &Builder{slot: make(map[string]int)}
}

// Insert registers pattern with payload. Empty patterns are ignored: they
// would match at every offset.
func (b *Builder) Insert(pattern string, payload ports.Payload) {
	if pattern == "" {
		return
	}
	payload.Pattern = pattern
	if i, ok := b.slot[pattern]; ok {
		b.payloads[i] = append(b.payloads[i], payload)
		return
	}
	b.slot[pattern] = len(b.patterns)
	b.patterns = append(b.patterns, pattern)
	b.payloads = append(b.payloads, []ports.Payload{payload})
}

// Build compiles the automaton. The builder must not be reused afterwards.
func (b *Builder) Build() ports.PatternIndex {
	idx := &Index{
		patterns: b.patterns,
		payloads: b.payloads,
	}
	if len(b.patterns) == 0 {
		return idx
	}
	// Standard match kind is required for overlapping iteration.
	builder := aho.NewAhoCorasickBuilder(aho.Opts{
		DFA: true,
	})
	idx.automaton = builder.Build(b.patterns)
	idx.built = true
	return idx
}

// Index implements ports.PatternIndex. Read-only after Build, so concurrent
// ScanAll calls are safe.
type Index struct {
	automaton aho.AhoCorasick
	patterns  []string
	payloads  [][]ports.Payload
	built     bool
}

// ScanAll streams text once through the automaton and reports every
// occurrence of every pattern, once per payload.
func (x *Index) ScanAll(text string) []ports.Hit {
	if !x.built || text == "" {
		return nil
	}
	iter := x.automaton.IterOverlappingByte([]byte(text))
	var hits []ports.Hit
	for next := iter.Next(); next != nil; next = iter.Next() {
		m := *next
		for _, p := range x.payloads[m.Pattern()] {
			hits = append(hits, ports.Hit{End: m.End(), Payload: p})
		}
	}
	return hits
}

// Len returns the number of distinct patterns in the automaton.
func (x *Index) Len() int {
	return len(x.patterns)
}

// Pattern returns the pattern string at the given index.
func (x *Index) Pattern(idx int) string {
	if idx < 0 || idx >= len(x.patterns) {
		return ""
	}
	return x.patterns[idx]
}
