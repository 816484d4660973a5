package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/corey/silencio/internal/adapters/web"
	"github.com/corey/silencio/internal/app"
	"github.com/corey/silencio/internal/config"
	"github.com/corey/silencio/internal/logging"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the redaction HTTP API on localhost",
	Long: "Starts a localhost-only HTTP server with POST /api/redact, /api/classify,\n" +
		"/api/tags, GET /api/health and /metrics. The bound port is written to\n" +
		".silencio/run/http.port.",
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", -1, "Port to bind (default: server.port, else derived from the project path; 0 = any)")
}

func runServe(cmd *cobra.Command, args []string) error {
	root := projectRoot()
	paths := app.NewPaths(root)
	if err := paths.EnsureDirs(); err != nil {
		return err
	}

	settings, err := loadSettings(root)
	if err != nil {
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
	if err := settings.ValidateClassifier(); err != nil {
		fmt.Fprintf(os.Stderr, "%s classifier disabled (%v): only rows/items requests will work\n",
			paint(colorYellow, "⚠"), err)
	}

	port := resolvePort(servePort, settings, root)
	srv := web.NewServer(a, a.Metrics.Gatherer(), log, paths.PortFile)
	if err := srv.Start(port); err != nil {
		return err
	}
	fmt.Printf("%s at %s\n", paint(colorBold, "⚡ silencio serving"), srv.URL())

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("\n⚡ shutting down...")
	srv.Stop()
	paths.CleanEphemeral()
	return nil
}

// resolvePort applies flag > config > project default.
func resolvePort(flag int, settings *config.Config, root string) int {
	if flag >= 0 {
		return flag
	}
	if settings.Server.Port > 0 {
		return settings.Server.Port
	}
	return web.DefaultPort(root)
}
