package ports

import "context"

// Classifier discovers the sensitive items present in a document. It is the
// upstream collaborator of the redaction engine: it decides WHAT is sensitive,
// the engine only decides WHERE. Implementations call out to a remote model
// and must be safe for concurrent use.
type Classifier interface {
	// Classify returns a list of items found in text. The list should be
	// deduplicated by surface form but callers normalize it anyway.
	// An error means no inventory is available; partial results are never
	// returned alongside an error.
	Classify(ctx context.Context, text string) ([]ClassifiedItem, error)

	// Model names the model behind the classifier (recorded with cached inventories).
	Model() string
}

// ClassifiedItem is one sensitive item as returned by a Classifier.
type ClassifiedItem struct {
	Item    string   `json:"item" yaml:"item"`                           // exact surface form in the document
	Code    string   `json:"code" yaml:"code"`                           // e.g. "(3)(A)(b)"
	Desc    string   `json:"desc" yaml:"desc"`                           // short label, e.g. "API keys"
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"` // other surface forms seen
	Notes   string   `json:"notes,omitempty" yaml:"notes,omitempty"`     // optional short reason
}
