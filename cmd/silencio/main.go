// silencio redacts sensitive items from text.
// A classifier enumerates what is sensitive; a single-pass multi-pattern scan
// replaces every occurrence with a numbered, categorized placeholder tag.
package main

import (
	"os"

	"github.com/corey/silencio/cmd/silencio/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
