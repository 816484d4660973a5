// Package inventory turns classifier output into numbered target rows.
//
// The classifier returns a deduplicated list of items (surface string, code,
// description, aliases). Before the redaction engine runs, items are
// normalized, sorted by (code, item) and numbered 1..N so that the same
// inventory always yields the same tag numbers.
package inventory

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"

	"github.com/corey/silencio/internal/domain/redact"
	"github.com/corey/silencio/internal/ports"
)

// Item is one sensitive item. It is the classifier's structured output.
type Item = ports.ClassifiedItem

// Inventory is the full result of classifying one document.
type Inventory struct {
	DocumentID string    `json:"document_id,omitempty" yaml:"document_id,omitempty"`
	Model      string    `json:"model,omitempty" yaml:"model,omitempty"`
	CreatedAt  time.Time `json:"created_at,omitzero" yaml:"created_at,omitempty"`
	Items      []Item    `json:"items" yaml:"items"`
}

// DocumentID returns the cache key for a document: the first 16 bytes of
// its SHA-256 digest, hex encoded.
func DocumentID(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:16])
}

// Normalize drops items without a surface string and merges items that share
// the same surface: the first occurrence keeps its code, description and
// notes, aliases are unioned in first-seen order. Aliases that are empty or
// equal to the item are dropped. Surface strings are never trimmed or
// case-folded; matching is exact.
func Normalize(items []Item) []Item {
	out := make([]Item, 0, len(items))
	pos := make(map[string]int, len(items))
	for _, it := range items {
		if it.Item == "" {
			continue
		}
		i, ok := pos[it.Item]
		if !ok {
			i = len(out)
			pos[it.Item] = i
			out = append(out, Item{Item: it.Item, Code: it.Code, Desc: it.Desc, Notes: it.Notes})
		}
		out[i].Aliases = mergeAliases(out[i].Item, out[i].Aliases, it.Aliases)
	}
	return out
}

func mergeAliases(item string, have, add []string) []string {
	seen := make(map[string]struct{}, len(have)+len(add))
	for _, a := range have {
		seen[a] = struct{}{}
	}
	for _, a := range add {
		if a == "" || a == item {
			continue
		}
		if _, dup := seen[a]; dup {
			continue
		}
		seen[a] = struct{}{}
		have = append(have, a)
	}
	return have
}

// Rows normalizes items and converts them into target rows numbered 1..N
// after sorting by (code, item) ascending.
func Rows(items []Item) []redact.TargetRow {
	norm := Normalize(items)
	sort.SliceStable(norm, func(i, j int) bool {
		if norm[i].Code != norm[j].Code {
			return norm[i].Code < norm[j].Code
		}
		return norm[i].Item < norm[j].Item
	})
	rows := make([]redact.TargetRow, len(norm))
	for i, it := range norm {
		rows[i] = redact.TargetRow{
			Number:        i + 1,
			CanonicalText: it.Item,
			Aliases:       it.Aliases,
			Code:          it.Code,
			Description:   it.Desc,
		}
	}
	return rows
}

// FromStored converts a cached inventory into an Inventory.
func FromStored(s *ports.StoredInventory) *Inventory {
	if s == nil {
		return nil
	}
	return &Inventory{
		DocumentID: s.DocumentID,
		Model:      s.Model,
		CreatedAt:  s.CreatedAt,
		Items:      s.Items,
	}
}

// ToStored converts an Inventory into its cached form.
func (inv *Inventory) ToStored(source string) *ports.StoredInventory {
	return &ports.StoredInventory{
		DocumentID: inv.DocumentID,
		Source:     source,
		Model:      inv.Model,
		CreatedAt:  inv.CreatedAt,
		Items:      inv.Items,
	}
}
