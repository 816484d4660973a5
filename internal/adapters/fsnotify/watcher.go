// Package fsnotify implements the ports.Watcher interface using github.com/fsnotify/fsnotify.
// It watches a single inbox directory (no recursion), filters out hidden, temporary and
// already-redacted files, and debounces rapid events per path since editors and copy
// tools often write a file in several chunks.
package fsnotify

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a path must stay quiet before onChange fires.
const DefaultDebounce = 200 * time.Millisecond

// Suffixes of files never handed to onChange.
var ignoreSuffixes = []string{
	".swp", ".swx", ".tmp", ".part", ".crdownload", "~", ".matches.json",
}

// Watcher implements ports.Watcher using fsnotify.
type Watcher struct {
	fw       *fsnotify.Watcher
	done     chan struct{}
	debounce time.Duration
	ignore   []string // absolute directories whose events are dropped

	mu      sync.Mutex
	stopped bool
	timers  map[string]*time.Timer
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithIgnoreDir drops events for files inside dir (e.g. the output directory
// when it lives inside the inbox).
func WithIgnoreDir(dir string) Option {
	return func(w *Watcher) {
		if abs, err := filepath.Abs(dir); err == nil {
			w.ignore = append(w.ignore, abs)
		}
	}
}

// NewWatcher creates a new file system watcher.
func NewWatcher(opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fw:       fw,
		done:     make(chan struct{}),
		debounce: DefaultDebounce,
		timers:   make(map[string]*time.Timer),
	}
	for _, o := range opts {
		o(w)
	}
	return w, nil
}

// Watch starts monitoring dir. onChange is called with the absolute path of
// each created or written regular file once it has been quiet for the
// debounce interval. Removals and renames away are not reported.
func (w *Watcher) Watch(dir string, onChange func(filePath string)) error {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return errors.New("watch target is not a directory: " + absPath)
	}
	if err := w.fw.Add(absPath); err != nil {
		return err
	}

	go func() {
		for {
			select {
			case event, ok := <-w.fw.Events:
				if !ok {
					return
				}
				if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
					continue
				}
				if w.shouldIgnore(event.Name) {
					continue
				}
				w.schedule(event.Name, onChange)

			case _, ok := <-w.fw.Errors:
				if !ok {
					return
				}
				// fsnotify recovers on its own; nothing to do per error

			case <-w.done:
				return
			}
		}
	}()

	return nil
}

// schedule (re)arms the per-path timer.
func (w *Watcher) schedule(path string, onChange func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		stopped := w.stopped
		w.mu.Unlock()
		if stopped {
			return
		}
		if fi, err := os.Stat(path); err != nil || !fi.Mode().IsRegular() {
			return
		}
		onChange(path)
	})
}

// Stop ends monitoring and releases all resources.
// Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	for p, t := range w.timers {
		t.Stop()
		delete(w.timers, p)
	}
	close(w.done)
	return w.fw.Close()
}

// shouldIgnore returns true if the file path should not trigger onChange.
func (w *Watcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") {
		return true
	}
	// Our own output, e.g. memo.redacted.md
	if strings.Contains(base, ".redacted.") || strings.HasSuffix(base, ".redacted") {
		return true
	}
	for _, suf := range ignoreSuffixes {
		if strings.HasSuffix(base, suf) {
			return true
		}
	}
	for _, dir := range w.ignore {
		if path == dir || strings.HasPrefix(path, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
