// Package app wires together all adapters and domain logic.
// It owns the inventory cache, the classifier, the redaction engine and the
// metrics, and exposes the operations the CLI and the HTTP API share.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/corey/silencio/internal/adapters/ahocorasick"
	"github.com/corey/silencio/internal/adapters/bbolt"
	fsw "github.com/corey/silencio/internal/adapters/fsnotify"
	"github.com/corey/silencio/internal/adapters/openai"
	"github.com/corey/silencio/internal/config"
	"github.com/corey/silencio/internal/domain/inventory"
	"github.com/corey/silencio/internal/domain/redact"
	"github.com/corey/silencio/internal/ports"
)

// ErrNoClassifier is returned by classifier-backed operations when no
// classifier is configured (usually a missing OPENAI_API_KEY).
var ErrNoClassifier = errors.New("no classifier configured")

// Origin labels where a redaction request came from.
type Origin string

const (
	OriginCLI   Origin = "cli"
	OriginAPI   Origin = "api"
	OriginWatch Origin = "watch"
)

// App is the top-level container wiring all components together.
type App struct {
	ProjectRoot string
	Paths       *Paths
	Settings    *config.Config
	Log         *zap.Logger

	Engine     *redact.Engine
	Store      ports.InventoryStore // nil when the cache is disabled
	Classifier ports.Classifier     // nil when no API key is configured
	Metrics    *Metrics

	closeStore func() error
	now        func() time.Time
}

// Config holds initialization parameters for the App.
type Config struct {
	ProjectRoot string
	Settings    *config.Config // nil = config.Default()
	Logger      *zap.Logger    // nil = no-op

	// NoCache skips opening the bbolt inventory cache.
	NoCache bool

	// Overrides, mainly for tests.
	Store      ports.InventoryStore
	Classifier ports.Classifier
	Metrics    *Metrics
}

// New creates an App. The bbolt cache is opened unless NoCache is set or a
// Store is supplied; the classifier is built only if an API key is set.
func New(cfg Config) (*App, error) {
	if cfg.ProjectRoot == "" {
		return nil, fmt.Errorf("project root required")
	}
	settings := cfg.Settings
	if settings == nil {
		settings = config.Default()
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}

	a := &App{
		ProjectRoot: cfg.ProjectRoot,
		Paths:       NewPaths(cfg.ProjectRoot),
		Settings:    settings,
		Log:         log,
		Engine:      redact.NewEngine(ahocorasick.NewBuilder, redact.WithTieBreak(settings.TieBreak())),
		Store:       cfg.Store,
		Classifier:  cfg.Classifier,
		Metrics:     metrics,
		now:         time.Now,
	}

	if a.Store == nil && !cfg.NoCache {
		if err := a.Paths.EnsureDirs(); err != nil {
			return nil, fmt.Errorf("create %s: %w", a.Paths.Root, err)
		}
		store, err := bbolt.NewStore(a.Paths.DB)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		a.Store = store
		a.closeStore = store.Close
	}

	if a.Classifier == nil && settings.ValidateClassifier() == nil {
		c := settings.Classifier
		a.Classifier = openai.New(openai.Options{
			BaseURL:   c.BaseURL,
			APIKey:    c.APIKey,
			Model:     c.Model,
			Timeout:   c.Timeout,
			RateLimit: c.RateLimit,
			Logger:    log,
		})
	}

	return a, nil
}

// Close releases the inventory cache.
func (a *App) Close() error {
	if a.closeStore != nil {
		err := a.closeStore()
		a.closeStore = nil
		return err
	}
	return nil
}

// Redact runs the engine over document with caller-supplied rows.
func (a *App) Redact(origin Origin, document string, rows []redact.TargetRow) (redact.Result, error) {
	start := time.Now()
	res, err := a.Engine.Redact(document, rows)
	if err != nil {
		a.Log.Warn("redact rejected input", zap.String("origin", string(origin)), zap.Error(err))
		return redact.Result{}, err
	}
	elapsed := time.Since(start)

	a.Metrics.RedactionsTotal.WithLabelValues(string(origin)).Inc()
	a.Metrics.RedactDuration.Observe(elapsed.Seconds())
	codes := make([]string, len(res.Matches))
	for i, m := range res.Matches {
		codes[i] = m.Code
	}
	a.Metrics.RecordMatches(codes)

	a.Log.Debug("redacted",
		zap.String("origin", string(origin)),
		zap.Int("rows", len(rows)),
		zap.Int("doc_bytes", len(document)),
		zap.Int("matches", len(res.Matches)),
		zap.Duration("elapsed", elapsed))
	return res, nil
}

// RedactItems normalizes and numbers items, then redacts document with them.
func (a *App) RedactItems(origin Origin, document string, items []inventory.Item) ([]redact.TargetRow, redact.Result, error) {
	a.warnInvalidCodes(items)
	rows := inventory.Rows(items)
	res, err := a.Redact(origin, document, rows)
	return rows, res, err
}

// Classify returns the inventory for document, serving it from the cache
// when possible. refresh forces a classifier call and overwrites the cache.
func (a *App) Classify(ctx context.Context, document, source string, refresh bool) (*inventory.Inventory, error) {
	id := inventory.DocumentID(document)
	log := a.Log.With(zap.String("document_id", id))

	if a.Store != nil && !refresh {
		stored, err := a.Store.LoadInventory(id)
		if err != nil {
			log.Warn("inventory cache read failed", zap.Error(err))
		} else if stored != nil {
			a.Metrics.InventoryCacheHits.Inc()
			log.Debug("inventory cache hit", zap.Int("items", len(stored.Items)))
			return inventory.FromStored(stored), nil
		}
	}

	if a.Classifier == nil {
		return nil, fmt.Errorf("%w: %v", ErrNoClassifier, config.ErrMissingAPIKey)
	}
	a.Metrics.InventoryCacheMisses.Inc()

	items, err := a.Classifier.Classify(ctx, document)
	if err != nil {
		a.Metrics.ClassifyErrorsTotal.Inc()
		return nil, fmt.Errorf("classify: %w", err)
	}
	inv := &inventory.Inventory{
		DocumentID: id,
		Model:      a.Classifier.Model(),
		CreatedAt:  a.now().UTC(),
		Items:      inventory.Normalize(items),
	}
	a.warnInvalidCodes(inv.Items)

	if a.Store != nil {
		if err := a.Store.SaveInventory(id, inv.ToStored(source)); err != nil {
			log.Warn("inventory cache write failed", zap.Error(err))
		}
	}
	log.Info("classified document", zap.String("source", source), zap.Int("items", len(inv.Items)))
	return inv, nil
}

// RedactDocument classifies document and redacts it with the resulting inventory.
func (a *App) RedactDocument(ctx context.Context, origin Origin, document, source string, refresh bool) (*inventory.Inventory, []redact.TargetRow, redact.Result, error) {
	inv, err := a.Classify(ctx, document, source, refresh)
	if err != nil {
		return nil, nil, redact.Result{}, err
	}
	rows, res, err := a.RedactItems(origin, document, inv.Items)
	if err != nil {
		return inv, nil, redact.Result{}, err
	}
	return inv, rows, res, nil
}

// FileReport is the sidecar written next to a redacted file.
type FileReport struct {
	Source     string             `json:"source"`
	DocumentID string             `json:"document_id"`
	Model      string             `json:"model,omitempty"`
	Rows       []redact.TargetRow `json:"rows"`
	Matches    []redact.Match     `json:"matches"`
}

// ProcessFile redacts one file and writes <name>.redacted<ext> and
// <name>.matches.json into outDir. It returns the path of the redacted file.
func (a *App) ProcessFile(ctx context.Context, path, outDir string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	inv, rows, res, err := a.RedactDocument(ctx, OriginWatch, string(data), filepath.Base(path), false)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", err
	}

	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	outPath := filepath.Join(outDir, stem+".redacted"+ext)
	if err := os.WriteFile(outPath, []byte(res.RedactedText), 0644); err != nil {
		return "", err
	}

	report, err := json.MarshalIndent(FileReport{
		Source:     base,
		DocumentID: inv.DocumentID,
		Model:      inv.Model,
		Rows:       rows,
		Matches:    res.Matches,
	}, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(outDir, stem+".matches.json"), append(report, '\n'), 0644); err != nil {
		return "", err
	}

	a.Log.Info("processed file",
		zap.String("path", path),
		zap.String("out", outPath),
		zap.Int("matches", len(res.Matches)))
	return outPath, nil
}

// Watch processes every file that settles in inbox until ctx is cancelled.
// Files are handled one at a time in arrival order.
func (a *App) Watch(ctx context.Context, inbox, outDir string, opts ...fsw.Option) error {
	w, err := fsw.NewWatcher(append([]fsw.Option{fsw.WithIgnoreDir(outDir)}, opts...)...)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	var watcher ports.Watcher = w
	defer watcher.Stop()

	queue := make(chan string, 64)
	if err := watcher.Watch(inbox, func(path string) {
		select {
		case queue <- path:
		case <-ctx.Done():
		}
	}); err != nil {
		return fmt.Errorf("watch %s: %w", inbox, err)
	}
	a.Log.Info("watching", zap.String("inbox", inbox), zap.String("out", outDir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-queue:
			if _, err := a.ProcessFile(ctx, path, outDir); err != nil {
				a.Log.Error("process file failed", zap.String("path", path), zap.Error(err))
			}
		}
	}
}

func (a *App) warnInvalidCodes(items []inventory.Item) {
	for _, it := range items {
		if !inventory.ValidCode(it.Code) {
			a.Log.Warn("item has malformed category code",
				zap.String("code", it.Code),
				zap.Int("item_len", len(it.Item)))
		}
	}
}
