package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/corey/silencio/internal/app"
	"github.com/corey/silencio/internal/logging"
)

var watchOut string

var watchCmd = &cobra.Command{
	Use:   "watch <inbox>",
	Short: "Redact every file dropped into a directory",
	Long: "Watches <inbox> (not recursively). Each new or changed file is classified\n" +
		"and redacted; <name>.redacted<ext> and <name>.matches.json are written to\n" +
		"the output directory (default: watch.output_dir, else .silencio/out).",
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOut, "out", "o", "", "Output directory")
}

func runWatch(cmd *cobra.Command, args []string) error {
	root := projectRoot()
	paths := app.NewPaths(root)
	if err := paths.EnsureDirs(); err != nil {
		return err
	}

	settings, err := loadSettings(root)
	if err != nil {
		return err
	}
	if err := settings.ValidateClassifier(); err != nil {
		return err
	}
	log, err := logging.ToFile(settings.LogLevel, paths.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	a, settings, err := openApp(root, false, log)
	if err != nil {
		return err
	}
	defer a.Close()

	inbox, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	out := watchOut
	if out == "" {
		out = settings.Watch.OutputDir
	}
	if out == "" {
		out = paths.OutDir
	}
	if out, err = filepath.Abs(out); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("%s %s → %s\n", paint(colorBold, "⚡ watching"), inbox, out)
	if err := a.Watch(ctx, inbox, out); err != nil {
		return err
	}
	fmt.Println("\n⚡ stopped")
	return nil
}
