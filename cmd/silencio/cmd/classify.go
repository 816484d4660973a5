package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corey/silencio/internal/domain/inventory"
)

var (
	classifyFormat  string
	classifyRefresh bool
	classifyNoCache bool
	classifyOutput  string
)

var classifyCmd = &cobra.Command{
	Use:   "classify [file|-]",
	Short: "List the sensitive items in a document",
	Long: "Asks the classifier for the deduplicated inventory of sensitive items.\n" +
		"Inventories are cached by document digest; --refresh forces a new call.\n" +
		"The output can be edited and fed back with `silencio redact --inventory`.",
	Args: cobra.MaximumNArgs(1),
	RunE: runClassify,
}

func init() {
	f := classifyCmd.Flags()
	f.StringVar(&classifyFormat, "format", "table", "Output format: table, json, yaml")
	f.BoolVar(&classifyRefresh, "refresh", false, "Ignore the cached inventory and classify again")
	f.BoolVar(&classifyNoCache, "no-cache", false, "Do not read or write the inventory cache")
	f.StringVarP(&classifyOutput, "output", "o", "", "Write output to file instead of stdout (format from extension)")
}

func runClassify(cmd *cobra.Command, args []string) error {
	doc, source, err := readInput(args)
	if err != nil {
		return err
	}

	a, _, err := openApp(projectRoot(), classifyNoCache, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	inv, err := a.Classify(context.Background(), doc, source, classifyRefresh)
	if err != nil {
		return err
	}

	format := classifyFormat
	if classifyOutput != "" && !cmd.Flags().Changed("format") {
		format = string(inventory.FormatFor(classifyOutput))
	}
	switch format {
	case "table":
		if classifyOutput != "" {
			return fmt.Errorf("table format cannot be written to a file")
		}
		fmt.Print(formatInventory(inv))
		return nil
	case string(inventory.FormatJSON), string(inventory.FormatYAML):
		data, err := inventory.Encode(inv, inventory.Format(format))
		if err != nil {
			return err
		}
		return writeOutput(classifyOutput, data)
	default:
		return fmt.Errorf("unknown format %q (want table, json or yaml)", format)
	}
}
