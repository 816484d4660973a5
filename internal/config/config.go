// Package config loads silencio runtime configuration.
//
// Precedence (highest first): environment variables, .silencio/config.yaml,
// built-in defaults. A .env file in the project root is loaded into the
// environment first (best effort, never overriding variables already set).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/corey/silencio/internal/domain/redact"
)

// Defaults.
const (
	DefaultModel     = "gpt-5-mini"
	DefaultBaseURL   = "https://api.openai.com/v1"
	DefaultTimeout   = 120 * time.Second
	DefaultRateLimit = 1.0 // classifier requests per second
	DefaultHTTPPort  = 0   // 0 = derive from project root
)

// ErrMissingAPIKey is returned by ValidateClassifier when no key is configured.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY environment variable not set")

// Config holds all runtime configuration.
type Config struct {
	Classifier ClassifierConfig `yaml:"classifier"`
	Redact     RedactConfig     `yaml:"redact"`
	Server     ServerConfig     `yaml:"server"`
	Watch      WatchConfig      `yaml:"watch"`
	LogLevel   string           `yaml:"log_level"`

	// File is the config file that was read, empty if none.
	File string `yaml:"-"`
}

// ClassifierConfig configures the remote sensitive-item classifier.
type ClassifierConfig struct {
	APIKey    string        `yaml:"-"` // env only, never read from or written to disk
	BaseURL   string        `yaml:"base_url"`
	Model     string        `yaml:"model"`
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit float64       `yaml:"rate_limit"` // requests per second, <= 0 disables pacing
}

// RedactConfig configures the redaction engine.
type RedactConfig struct {
	TieBreak string `yaml:"tie_break"` // "lower-row" (default) or "higher-row"
}

// ServerConfig configures `silencio serve`.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// WatchConfig configures `silencio watch`.
type WatchConfig struct {
	OutputDir string `yaml:"output_dir"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Classifier: ClassifierConfig{
			BaseURL:   DefaultBaseURL,
			Model:     DefaultModel,
			Timeout:   DefaultTimeout,
			RateLimit: DefaultRateLimit,
		},
		Redact: RedactConfig{TieBreak: redact.LowerRowWins.String()},
		Server: ServerConfig{Port: DefaultHTTPPort},
	}
}

// Load reads .env, the optional config file at configPath and then the
// environment. A missing config file is not an error.
func Load(projectRoot, configPath string) (*Config, error) {
	// Best-effort: load .env from the project root
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))

	cfg := Default()
	if configPath != "" {
		if err := cfg.loadFile(configPath); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	c.File = path
	return nil
}

func (c *Config) applyEnv() error {
	c.Classifier.APIKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))

	if v := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")); v != "" {
		c.Classifier.BaseURL = v
	}
	// MODEL_NAME is the historical name; OPENAI_MODEL is accepted too.
	if v := strings.TrimSpace(os.Getenv("MODEL_NAME")); v != "" {
		c.Classifier.Model = v
	} else if v := strings.TrimSpace(os.Getenv("OPENAI_MODEL")); v != "" {
		c.Classifier.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("SILENCIO_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SILENCIO_TIMEOUT: %w", err)
		}
		c.Classifier.Timeout = d
	}
	if v := strings.TrimSpace(os.Getenv("SILENCIO_RATE_LIMIT")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("SILENCIO_RATE_LIMIT: %w", err)
		}
		c.Classifier.RateLimit = f
	}
	if v := strings.TrimSpace(os.Getenv("SILENCIO_TIE_BREAK")); v != "" {
		c.Redact.TieBreak = v
	}
	if v := strings.TrimSpace(os.Getenv("SILENCIO_PORT")); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SILENCIO_PORT: %w", err)
		}
		c.Server.Port = p
	}
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		c.LogLevel = v
	}
	c.Classifier.BaseURL = strings.TrimRight(c.Classifier.BaseURL, "/")
	return nil
}

// Validate checks settings every command needs. The API key is checked
// separately by ValidateClassifier because offline commands don't need it.
func (c *Config) Validate() error {
	if _, err := redact.ParseTieBreak(c.Redact.TieBreak); err != nil {
		return err
	}
	if c.Classifier.Timeout <= 0 {
		return fmt.Errorf("classifier timeout must be positive, got %s", c.Classifier.Timeout)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Server.Port)
	}
	return nil
}

// ValidateClassifier checks that a classifier can be constructed.
func (c *Config) ValidateClassifier() error {
	if c.Classifier.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Classifier.Model == "" {
		return errors.New("classifier model is empty")
	}
	return nil
}

// TieBreak returns the parsed duplicate-string policy.
func (c *Config) TieBreak() redact.TieBreak {
	tb, _ := redact.ParseTieBreak(c.Redact.TieBreak)
	return tb
}
