// Package logging provides shared zap logger initialization for silencio.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New creates a *zap.Logger for the given level name.
// "debug" or "trace" selects a development config with debug-level output;
// any other value (including empty) selects the production JSON config.
// Logs go to stderr so that stdout stays reserved for command output.
func New(level string) (*zap.Logger, error) {
	if level == "debug" || level == "trace" {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		cfg.OutputPaths = []string{"stderr"}
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil && level != "" {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}

// ToFile creates a production logger that appends JSON lines to path in
// addition to the given level handling. Used by long-running commands
// (serve, watch) to keep a daemon log under the project directory.
func ToFile(level, path string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if lvl, err := zapcore.ParseLevel(level); err == nil && level != "" {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	if level == "trace" {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	cfg.OutputPaths = []string{"stderr", path}
	return cfg.Build()
}
