package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/corey/silencio/internal/domain/tags"
)

var tagsJSON bool

var tagsCmd = &cobra.Command{
	Use:   "tags [file|-]",
	Short: "List the placeholder tags in redacted text",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTags,
}

func init() {
	tagsCmd.Flags().BoolVar(&tagsJSON, "json", false, "Print tags as JSON")
}

func runTags(cmd *cobra.Command, args []string) error {
	text, _, err := readInput(args)
	if err != nil {
		return err
	}
	found := tags.Find(text)

	if tagsJSON {
		if found == nil {
			found = []tags.Tag{}
		}
		data, err := json.MarshalIndent(found, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}
	fmt.Print(formatTags(found))
	return nil
}
