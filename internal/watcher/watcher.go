// Package watcher re-indexes the current folder when files under it change,
// using fsnotify with debouncing.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 2 * time.Second

// Filter reports whether a path, relative to the watched root and slash
// separated, should trigger or be watched. isDir is true for directories.
type Filter func(relPath string, isDir bool) bool

// Watcher watches one folder tree and calls onChange once per burst of changes.
type Watcher struct {
	root     string
	onChange func(ctx context.Context, root string)
	filter   Filter
	debounce time.Duration
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	timer    *time.Timer
	watched  []string // directories added under root
	ctx      context.Context
	done     chan struct{}
	started  bool
	stopOnce sync.Once
	logger   *zap.Logger
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for debug output (directory changes, file events, etc.).
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets the quiet period after the last event before onChange runs.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithFilter restricts which files trigger a change and which directories are watched.
func WithFilter(f Filter) WatcherOption {
	return func(w *Watcher) { w.filter = f }
}

// NewWatcher creates a watcher. onChange receives the watched root after a
// debounced burst of relevant events.
func NewWatcher(onChange func(ctx context.Context, root string), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		onChange: onChange,
		debounce: defaultDebounce,
		done:     make(chan struct{}),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start starts the watcher. It runs until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher
	w.ctx = ctx
	w.started = true
	go w.run(ctx, watcher)
	return nil
}

func (w *Watcher) run(ctx context.Context, watcher *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			if err != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

// Watch replaces the watched folder with root. An empty root stops watching
// without stopping the watcher.
func (w *Watcher) Watch(root string) error {
	if root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return err
		}
		root = filepath.Clean(abs)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	if root == w.root {
		return nil
	}
	for _, p := range w.watched {
		_ = w.watcher.Remove(p)
	}
	w.watched = nil
	w.root = ""
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	if root == "" {
		return nil
	}
	if err := w.addTreeLocked(root, root); err != nil {
		for _, p := range w.watched {
			_ = w.watcher.Remove(p)
		}
		w.watched = nil
		return err
	}
	w.root = root
	w.logger.Debug("watcher watching folder", zap.String("root", root), zap.Int("directories", len(w.watched)))
	return nil
}

// Root returns the watched folder, or "" when none.
func (w *Watcher) Root() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.root
}

// addTreeLocked watches dir and its relevant subdirectories; filters see
// paths relative to root.
func (w *Watcher) addTreeLocked(root, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && !w.relevantLocked(w.relative(root, path), true) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			if path == dir {
				return err
			}
			w.logger.Debug("watcher failed to add directory", zap.String("path", path), zap.Error(err))
			return nil
		}
		w.watched = append(w.watched, path)
		return nil
	})
}

// relative returns path relative to a root candidate, slash separated.
func (w *Watcher) relative(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func (w *Watcher) relevantLocked(rel string, isDir bool) bool {
	if w.filter == nil {
		return true
	}
	return w.filter(rel, isDir)
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	root := w.root
	if root == "" || !inDir(root, filepath.Clean(ev.Name)) {
		return
	}
	rel := w.relative(root, ev.Name)
	w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", rel))

	switch {
	case ev.Op.Has(fsnotify.Create):
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !w.relevantLocked(rel, true) {
				return
			}
			// Files created together with the directory produce no events of their own.
			if err := w.addTreeLocked(root, filepath.Clean(ev.Name)); err != nil {
				w.logger.Debug("watcher failed to add directory", zap.String("path", ev.Name), zap.Error(err))
			}
			w.scheduleLocked()
			return
		}
		if w.relevantLocked(rel, false) {
			w.scheduleLocked()
		}
	case ev.Op.Has(fsnotify.Write):
		if w.relevantLocked(rel, false) {
			w.scheduleLocked()
		}
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		// The entry is gone, so files and directories cannot be told apart.
		if w.relevantLocked(rel, false) || w.relevantLocked(rel, true) {
			w.scheduleLocked()
		}
	}
}

func (w *Watcher) scheduleLocked() {
	if w.timer != nil {
		w.timer.Stop()
	}
	root := w.root
	ctx := w.ctx
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		current := w.root
		w.timer = nil
		w.mu.Unlock()
		if current != root || ctx.Err() != nil {
			return
		}
		w.logger.Debug("watcher change settled", zap.String("root", root))
		if w.onChange != nil {
			w.onChange(ctx, root)
		}
	})
}

func inDir(dir, path string) bool {
	if dir == path {
		return true
	}
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.watched = nil
	w.root = ""
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
