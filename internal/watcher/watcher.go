// Package watcher watches the corpus path with fsnotify and fires a single
// debounced callback when it changes, so the offline pipeline can drop a new
// snapshot and have the service pick it up without a restart.
package watcher

import (
	"context"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches one corpus path (a snapshot file or a snapshot directory,
// recursively) and invokes onChange after events settle. A burst of writes —
// the pipeline rewriting every cluster file — coalesces into one callback.
type Watcher struct {
	path     string
	onChange func()
	debounce time.Duration
	logger   *zap.Logger

	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	timer    *time.Timer
	done     chan struct{}
	started  bool
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the settle window. Mostly for tests.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher over path. onChange runs on the watcher's goroutine
// after changes settle; it must not block for long.
func New(path string, onChange func(), opts ...Option) *Watcher {
	w := &Watcher{
		path:     path,
		onChange: onChange,
		debounce: defaultDebounce,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = fsw
	w.started = true
	w.mu.Unlock()

	if err := w.addAll(); err != nil {
		_ = fsw.Close()
		w.mu.Lock()
		w.watcher = nil
		w.started = false
		w.mu.Unlock()
		return err
	}
	if w.logger != nil {
		w.logger.Debug("corpus watcher started", zap.String("path", w.path))
	}
	go w.run(ctx)
	return nil
}

// addAll registers the corpus path and, for a directory, every
// subdirectory. Watching the parent directory as well catches atomic
// replace-by-rename of a snapshot file.
func (w *Watcher) addAll() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	return filepath.WalkDir(w.path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(p)
		}
		return nil
	})
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil && w.logger != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !w.relevant(ev.Name) {
		return
	}
	if w.logger != nil {
		w.logger.Debug("corpus change", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))
	}
	// A created subdirectory must be watched before its files are written.
	if ev.Op.Has(fsnotify.Create) {
		_ = w.watcher.Add(ev.Name)
	}
	w.scheduleCallback()
}

// relevant reports whether path is the corpus path or inside it.
func (w *Watcher) relevant(path string) bool {
	clean := filepath.Clean(path)
	root := filepath.Clean(w.path)
	if clean == root {
		return true
	}
	rel, err := filepath.Rel(root, clean)
	if err != nil {
		return false
	}
	return rel != ".." && !filepath.IsAbs(rel) && !hasDotDotPrefix(rel)
}

func hasDotDotPrefix(rel string) bool {
	return rel == ".." || len(rel) > 2 && rel[:3] == ".."+string(filepath.Separator)
}

// scheduleCallback resets the settle timer; onChange fires once the burst
// stops.
func (w *Watcher) scheduleCallback() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.done:
			return
		default:
		}
		if w.onChange != nil {
			w.onChange()
		}
	})
}

// Stop stops the watcher and cancels any pending callback.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
			w.timer = nil
		}
		if w.watcher != nil {
			_ = w.watcher.Close()
			w.watcher = nil
		}
		w.started = false
		w.mu.Unlock()
	})
}
