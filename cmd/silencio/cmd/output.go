package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/corey/silencio/internal/domain/inventory"
	"github.com/corey/silencio/internal/domain/redact"
	"github.com/corey/silencio/internal/domain/tags"
	"github.com/corey/silencio/internal/ports"
)

// ANSI color codes for terminal output.
const (
	colorReset   = "\033[0m"
	colorBold    = "\033[1m"
	colorRed     = "\033[31m"
	colorCyan    = "\033[36m"
	colorMagenta = "\033[35m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorGray    = "\033[90m"
)

// colorEnabled is set once per invocation from --color / --no-color / NO_COLOR.
var colorEnabled bool

// paint wraps s in an ANSI color when color output is enabled.
func paint(color, s string) string {
	if !colorEnabled {
		return s
	}
	return color + s + colorReset
}

// categoryColor picks a color per top-level category.
func categoryColor(code string) string {
	switch {
	case strings.HasPrefix(code, "(1)"):
		return colorRed
	case strings.HasPrefix(code, "(2)"):
		return colorCyan
	case strings.HasPrefix(code, "(3)"):
		return colorYellow
	case strings.HasPrefix(code, "(4)"):
		return colorGreen
	}
	return colorMagenta
}

// highlightTags colors every placeholder tag in redacted text.
func highlightTags(text string) string {
	if !colorEnabled {
		return text
	}
	return tags.Highlight(text, func(tag string) string {
		code := ""
		if found := tags.Find(tag); len(found) == 1 {
			code = found[0].Code
		}
		return categoryColor(code) + tag + colorReset
	})
}

// formatMatchSummary formats the per-row match counts of a redaction.
//
//	⚡ 3 spans redacted │ 2 rows
//	  #1  (1)(A)(a)  Real names       ×2
//	  #2  (3)(A)(b)  API keys         ×1
func formatMatchSummary(rows []redact.TargetRow, matches []redact.Match) string {
	counts := make(map[int]int, len(rows))
	for _, m := range matches {
		counts[m.RowNumber]++
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s │ %d rows\n",
		paint(colorBold, fmt.Sprintf("⚡ %d spans redacted", len(matches))), len(rows)))

	sorted := make([]redact.TargetRow, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Number < sorted[j].Number })
	for _, r := range sorted {
		n := counts[r.Number]
		if n == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("  #%-3d %s  %-32s ×%d\n",
			r.Number,
			paint(categoryColor(r.Code), fmt.Sprintf("%-10s", r.Code)),
			r.Description, n))
	}
	return sb.String()
}

// formatInventory formats an inventory as a table.
func formatInventory(inv *inventory.Inventory) string {
	var sb strings.Builder
	sb.WriteString(paint(colorBold, fmt.Sprintf("⚡ %d items", len(inv.Items))))
	if inv.Model != "" {
		sb.WriteString(fmt.Sprintf(" │ %s", inv.Model))
	}
	if inv.DocumentID != "" {
		sb.WriteString(fmt.Sprintf(" │ %s", paint(colorGray, inv.DocumentID)))
	}
	sb.WriteString("\n")

	for i, r := range inventory.Rows(inv.Items) {
		sb.WriteString(fmt.Sprintf("  #%-3d %s  %s", i+1,
			paint(categoryColor(r.Code), fmt.Sprintf("%-10s", r.Code)), r.CanonicalText))
		if len(r.Aliases) > 0 {
			sb.WriteString(paint(colorGray, "  aka "+strings.Join(r.Aliases, ", ")))
		}
		if !inventory.ValidCode(r.Code) {
			sb.WriteString(paint(colorYellow, "  (malformed code)"))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatTags formats the tags found in redacted text.
func formatTags(found []tags.Tag) string {
	var sb strings.Builder
	sb.WriteString(paint(colorBold, fmt.Sprintf("⚡ %d tags", len(found))) + "\n")
	for _, t := range found {
		num := "-"
		if t.Number > 0 {
			num = fmt.Sprintf("#%d", t.Number)
		}
		sb.WriteString(fmt.Sprintf("  %5d  %-4s %s  %s\n", t.Start, num,
			paint(categoryColor(t.Code), fmt.Sprintf("%-10s", t.Code)), t.Description))
	}
	return sb.String()
}

// formatCacheList formats cached inventory summaries.
func formatCacheList(list []ports.InventorySummary) string {
	var sb strings.Builder
	sb.WriteString(paint(colorBold, fmt.Sprintf("⚡ %d cached inventories", len(list))) + "\n")
	for _, s := range list {
		source := s.Source
		if source == "" {
			source = "-"
		}
		sb.WriteString(fmt.Sprintf("  %s  %-24s %3d items  %s  %s\n",
			paint(colorCyan, s.DocumentID), source, s.ItemCount,
			s.Model, paint(colorGray, s.CreatedAt.Local().Format(time.DateTime))))
	}
	return sb.String()
}
