package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/corey/silencio/internal/app"
	"github.com/corey/silencio/internal/domain/inventory"
	"github.com/corey/silencio/internal/domain/redact"
)

var (
	redactRowsFile      string
	redactInventoryFile string
	redactJSON          bool
	redactSummary       bool
	redactRefresh       bool
	redactNoCache       bool
	redactOutput        string
)

var redactCmd = &cobra.Command{
	Use:   "redact [file|-]",
	Short: "Redact a document",
	Long: "Replaces every sensitive item in the document with a numbered tag.\n\n" +
		"Items come from --rows (numbered target rows), --inventory (classifier-style\n" +
		"items, numbered by code then item) or, by default, from the classifier.\n" +
		"Reads stdin when no file is given.",
	Args: cobra.MaximumNArgs(1),
	RunE: runRedact,
}

func init() {
	f := redactCmd.Flags()
	f.StringVar(&redactRowsFile, "rows", "", "JSON/YAML list of target rows {number, item, aliases, code, desc}")
	f.StringVar(&redactInventoryFile, "inventory", "", "JSON/YAML inventory of items {item, code, desc, aliases}")
	f.BoolVar(&redactJSON, "json", false, "Print the redacted text and match report as JSON")
	f.BoolVar(&redactSummary, "summary", false, "Print per-row match counts to stderr")
	f.BoolVar(&redactRefresh, "refresh", false, "Ignore the cached inventory and classify again")
	f.BoolVar(&redactNoCache, "no-cache", false, "Do not read or write the inventory cache")
	f.StringVarP(&redactOutput, "output", "o", "", "Write output to file instead of stdout")
	redactCmd.MarkFlagsMutuallyExclusive("rows", "inventory")
}

// redactReport is the --json output.
type redactReport struct {
	Source       string             `json:"source"`
	DocumentID   string             `json:"document_id"`
	RedactedText string             `json:"redacted_text"`
	Rows         []redact.TargetRow `json:"rows"`
	Matches      []redact.Match     `json:"matches"`
}

func runRedact(cmd *cobra.Command, args []string) error {
	doc, source, err := readInput(args)
	if err != nil {
		return err
	}

	root := projectRoot()
	offline := redactRowsFile != "" || redactInventoryFile != ""
	a, _, err := openApp(root, redactNoCache || offline, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		rows []redact.TargetRow
		res  redact.Result
	)
	switch {
	case redactRowsFile != "":
		if rows, err = loadRows(redactRowsFile); err != nil {
			return err
		}
		res, err = a.Redact(app.OriginCLI, doc, rows)
	case redactInventoryFile != "":
		inv, lerr := loadInventory(redactInventoryFile)
		if lerr != nil {
			return lerr
		}
		rows, res, err = a.RedactItems(app.OriginCLI, doc, inv.Items)
	default:
		_, rows, res, err = a.RedactDocument(context.Background(), app.OriginCLI, doc, source, redactRefresh)
	}
	if err != nil {
		return err
	}

	if redactSummary {
		fmt.Fprint(os.Stderr, formatMatchSummary(rows, res.Matches))
	}

	if redactJSON {
		if rows == nil {
			rows = []redact.TargetRow{}
		}
		data, err := json.MarshalIndent(redactReport{
			Source:       source,
			DocumentID:   inventory.DocumentID(doc),
			RedactedText: res.RedactedText,
			Rows:         rows,
			Matches:      res.Matches,
		}, "", "  ")
		if err != nil {
			return err
		}
		return writeOutput(redactOutput, append(data, '\n'))
	}

	if redactOutput != "" {
		return writeOutput(redactOutput, []byte(res.RedactedText))
	}
	fmt.Print(highlightTags(res.RedactedText))
	return nil
}

// loadRows reads a JSON or YAML list of target rows, chosen by extension.
func loadRows(path string) ([]redact.TargetRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows []redact.TargetRow
	if inventory.FormatFor(path) == inventory.FormatYAML {
		err = yaml.Unmarshal(data, &rows)
	} else {
		err = json.Unmarshal(data, &rows)
	}
	if err != nil {
		return nil, fmt.Errorf("parse rows %s: %w", path, err)
	}
	return rows, nil
}

func loadInventory(path string) (*inventory.Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	inv, err := inventory.Decode(data, inventory.FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("parse inventory %s: %w", path, err)
	}
	return inv, nil
}
