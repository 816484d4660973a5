package cmd

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/corey/silencio/internal/adapters/bbolt"
	"github.com/corey/silencio/internal/app"
)

// isDBLockError returns true if the error chain contains a bbolt lock timeout.
func isDBLockError(err error) bool {
	if err == nil {
		return false
	}
	return bbolt.IsLockTimeout(err)
}

// diagnoseDBLock returns actionable guidance when the inventory cache is
// locked. It distinguishes a running `silencio serve`, a stale port file
// and an unknown lock holder.
func diagnoseDBLock(root string) string {
	paths := app.NewPaths(root)
	portData, err := os.ReadFile(paths.PortFile)
	if err != nil {
		return "inventory cache is locked by another process\n" +
			"  → find the process:  ps aux | grep silencio\n" +
			"  → stop it, or rerun with --no-cache"
	}

	port := strings.TrimSpace(string(portData))
	client := http.Client{Timeout: 500 * time.Millisecond}
	if resp, err := client.Get("http://127.0.0.1:" + port + "/api/health"); err == nil {
		resp.Body.Close()
		return fmt.Sprintf("inventory cache is locked by a running `silencio serve` on port %s\n"+
			"  → use its API:  curl -s localhost:%s/api/redact -d '{\"document\":\"...\"}'\n"+
			"  → or rerun with --no-cache", port, port)
	}

	return fmt.Sprintf("inventory cache is locked: a server port file exists but nothing answers\n"+
		"  → a previous `silencio serve` may still be shutting down or hung\n"+
		"  → find the process:  ps aux | grep 'silencio serve'\n"+
		"  → clean up:          rm %s", paths.PortFile)
}
