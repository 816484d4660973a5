package openai

import (
	"sort"
	"strings"

	"github.com/corey/silencio/internal/domain/inventory"
)

const promptHeader = `You are a redaction engine for corporate security and confidentiality.

Return a DEDUPED list with fields: item, code, desc, aliases, notes.
- One row per unique item present in the input. If an item appears multiple times, list it ONCE.
- Use the most specific code: (1|2|3|4)(A–E|X)?(a–e|x)?  e.g., (1)(A)(c), (3)(B)(d), (2)(C).
- Keep item EXACTLY as it appears in the input (surface form). Add other seen surface forms to aliases.
- Be minimal and factual. Do not include anything not present in the input.
- Every category level must be enclosed in round brackets, like "(3)(A)(b)".
  (Not 3.A.b or [3][A][b], 3(A)(b), etc.)
- desc is the short legend label of the chosen code.

Legend:
`

// systemPrompt is built once from the category legend.
var systemPrompt = buildSystemPrompt()

func buildSystemPrompt() string {
	codes := make([]string, 0, len(inventory.Categories))
	for c := range inventory.Categories {
		codes = append(codes, c)
	}
	// Lexical order nests children right after their parent.
	sort.Strings(codes)

	var sb strings.Builder
	sb.WriteString(promptHeader)
	for _, c := range codes {
		depth := strings.Count(c, "(") - 1
		sb.WriteString(strings.Repeat("  ", depth))
		sb.WriteString("* ")
		sb.WriteString(c)
		sb.WriteString(" ")
		sb.WriteString(inventory.Categories[c])
		sb.WriteString("\n")
	}
	return sb.String()
}

// inventorySchema is the strict JSON schema the model must answer with.
var inventorySchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
	"required":             []string{"items"},
	"properties": map[string]any{
		"items": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"item", "code", "desc", "aliases", "notes"},
				"properties": map[string]any{
					"item":    map[string]any{"type": "string"},
					"code":    map[string]any{"type": "string"},
					"desc":    map[string]any{"type": "string"},
					"aliases": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"notes":   map[string]any{"type": "string"},
				},
			},
		},
	},
}
