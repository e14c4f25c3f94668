package site

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce collapses editor save bursts into one rebuild.
const DefaultWatchDebounce = 300 * time.Millisecond

// Builder is the part of Service the watcher drives.
type Builder interface {
	BuildStatic(ctx context.Context) error
}

// Watcher rebuilds the site when content or templates change. Failed builds
// are logged and the watcher keeps running.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	builder  Builder
	roots    []string
	debounce time.Duration
	logger   *slog.Logger
	onBuild  func(context.Context, error)
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

// WatcherOption customizes a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a rebuild.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithBuildHook runs fn after every rebuild with its result.
func WithBuildHook(fn func(context.Context, error)) WatcherOption {
	return func(w *Watcher) { w.onBuild = fn }
}

// NewWatcher watches roots and every directory below them.
func NewWatcher(builder Builder, logger *slog.Logger, roots []string, opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{
		watcher:  fw,
		builder:  builder,
		roots:    roots,
		debounce: DefaultWatchDebounce,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start registers the directories and begins watching. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	for _, root := range w.roots {
		if err := w.addTree(root); err != nil {
			w.logger.Warn("watch", "dir", root, "error", err)
		}
	}

	go w.run(ctx)
	return nil
}

// Stop ends the watch loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.watcher.Close()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	if err := w.watcher.Close(); err != nil {
		w.logger.Error("watch close", "error", err)
	}
}

func (w *Watcher) addTree(root string) error {
	if strings.TrimSpace(root) == "" {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addTree(event.Name)
				}
			}
			w.logger.Debug("watch event", "path", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch", "error", err)
		case <-timer.C:
			err := w.builder.BuildStatic(ctx)
			if err != nil {
				w.logger.Error("rebuild", "error", err)
			}
			if w.onBuild != nil {
				w.onBuild(ctx, err)
			}
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	base := filepath.Base(event.Name)
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~")
}
