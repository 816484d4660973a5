package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corey/silencio/internal/app"
	"github.com/corey/silencio/internal/config"
	"github.com/corey/silencio/internal/logging"
)

var (
	configFlag  string
	colorFlag   string
	noColorFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "silencio",
	Short: "silencio: redact sensitive items from text",
	Long: "Classifies the sensitive items in a document (names, identifiers, credentials,\n" +
		"internal details) and replaces every occurrence with a tag like\n" +
		"[REDACTED(#3): (1)(A)(c), E-mail addresses].",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		colorEnabled = resolveColor(colorFlag, noColorFlag)
	},
}

// projectRoot returns the project root (cwd by default).
func projectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return dir
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default .silencio/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&colorFlag, "color", "auto", "Colorize output: auto, always, never")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(redactCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(configCmd)
}

// loadSettings reads .env, the config file and the environment.
func loadSettings(root string) (*config.Config, error) {
	path := configFlag
	if path == "" {
		path = app.NewPaths(root).Config
	}
	return config.Load(root, path)
}

// cliLogger logs to stderr. One-shot commands default to warn so that
// stderr stays quiet unless LOG_LEVEL asks for more.
func cliLogger(settings *config.Config) (*zap.Logger, error) {
	level := settings.LogLevel
	if level == "" {
		level = "warn"
	}
	return logging.New(level)
}

// openApp loads settings and wires an App. Long-running commands pass a
// logger that also writes to the project log file.
func openApp(root string, noCache bool, log *zap.Logger) (*app.App, *config.Config, error) {
	settings, err := loadSettings(root)
	if err != nil {
		return nil, nil, err
	}
	if log == nil {
		if log, err = cliLogger(settings); err != nil {
			return nil, nil, err
		}
	}
	a, err := app.New(app.Config{
		ProjectRoot: root,
		Settings:    settings,
		Logger:      log,
		NoCache:     noCache,
	})
	if err != nil {
		if isDBLockError(err) {
			return nil, nil, errors.New(diagnoseDBLock(root))
		}
		return nil, nil, err
	}
	return a, settings, nil
}

// readInput returns the document named by args (a path, or "-" / nothing for
// stdin) and a display name for it.
func readInput(args []string) (string, string, error) {
	if len(args) == 0 || args[0] == "-" {
		if len(args) == 0 && !isStdinPipe() {
			return "", "", errors.New("no input: pass a file or pipe text on stdin")
		}
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), "stdin", nil
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", err
	}
	return string(data), filepath.Base(args[0]), nil
}

// writeOutput writes data to path, or to stdout when path is empty.
func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0644)
}
