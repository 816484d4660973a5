package redact

// Option configures an Engine.
type Option func(*Engine)

// WithTieBreak sets the duplicate-string policy (default LowerRowWins).
func WithTieBreak(tb TieBreak) Option {
	return func(e *Engine) {
		e.tieBreak = tb
	}
}

// Engine composes build -> scan -> select -> substitute. It holds no
// per-call state and is safe for concurrent use.
type Engine struct {
	newBuilder BuilderFunc
	tieBreak   TieBreak
}

// NewEngine returns an engine whose indexes are built with newBuilder.
func NewEngine(newBuilder BuilderFunc, opts ...Option) *Engine {
	e := &Engine{newBuilder: newBuilder}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// TieBreak returns the configured duplicate-string policy.
func (e *Engine) TieBreak() TieBreak {
	return e.tieBreak
}

// BuildIndex builds a reusable index for rows. See the package-level BuildIndex.
func (e *Engine) BuildIndex(rows []TargetRow) (*Index, error) {
	return BuildIndex(e.newBuilder, rows)
}

// Redact replaces every selected occurrence of any row string in document.
// An invalid row set fails before anything is scanned. With no rows the
// document is returned unchanged with an empty match list.
func (e *Engine) Redact(document string, rows []TargetRow) (Result, error) {
	if len(rows) == 0 {
		return Result{RedactedText: document, Matches: []Match{}}, nil
	}
	idx, err := e.BuildIndex(rows)
	if err != nil {
		return Result{}, err
	}
	return e.RedactWith(idx, document), nil
}

// RedactWith runs scan -> select -> substitute against a prebuilt index.
func (e *Engine) RedactWith(idx *Index, document string) Result {
	raw := Scan(idx, document)
	if len(raw) == 0 {
		return Result{RedactedText: document, Matches: []Match{}}
	}
	text, matches := Apply(document, Select(raw, e.tieBreak))
	return Result{RedactedText: text, Matches: matches}
}
