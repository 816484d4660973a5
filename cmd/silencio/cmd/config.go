package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corey/silencio/internal/app"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	Long:  "Shows the effective settings, project paths and server status. The API key is never printed.",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	root := projectRoot()
	paths := app.NewPaths(root)
	settings, err := loadSettings(root)
	if err != nil {
		return err
	}

	key := paint(colorYellow, "✗ not set")
	if settings.Classifier.APIKey != "" {
		key = paint(colorGreen, "✓ set")
	}
	file := settings.File
	if file == "" {
		file = paint(colorGray, "(none)")
	}
	level := settings.LogLevel
	if level == "" {
		level = "info"
	}

	fmt.Printf("%s\n", paint(colorBold, "⚡ silencio config"))
	fmt.Printf("  Root:        %s\n", root)
	fmt.Printf("  Config:      %s\n", file)
	fmt.Printf("  Cache:       %s\n", paths.DB)
	fmt.Printf("  Model:       %s\n", settings.Classifier.Model)
	fmt.Printf("  Endpoint:    %s\n", settings.Classifier.BaseURL)
	fmt.Printf("  API key:     %s\n", key)
	fmt.Printf("  Timeout:     %s\n", settings.Classifier.Timeout)
	fmt.Printf("  Rate limit:  %g req/s\n", settings.Classifier.RateLimit)
	fmt.Printf("  Tie-break:   %s\n", settings.TieBreak())
	fmt.Printf("  Log level:   %s\n", level)

	if portData, err := os.ReadFile(paths.PortFile); err == nil {
		fmt.Printf("  Server:      http://localhost:%s\n", strings.TrimSpace(string(portData)))
	}
	return nil
}
