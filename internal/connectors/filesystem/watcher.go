package filesystem

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/kbindex/internal/core/ports/driven"
	"github.com/custodia-labs/kbindex/internal/logger"
)

// Ensure Watcher implements the interface.
var _ driven.ChangeSource = (*Watcher)(nil)

// ChangeType describes what happened to a corpus file.
type ChangeType string

// Change types.
const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// Change is a single corpus file event.
type Change struct {
	Type ChangeType
	Path string
}

// DefaultDebounce is the quiet period used to coalesce bursts of changes.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports changes to files the loader would pick up.
type Watcher struct {
	loader *Loader
	quiet  time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	dirs    map[string]struct{}
	closed  bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period used by Changes.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.quiet = d
		}
	}
}

// NewWatcher creates a watcher for the loader's papers directory.
func NewWatcher(loader *Loader, opts ...WatcherOption) *Watcher {
	w := &Watcher{loader: loader, quiet: DefaultDebounce, dirs: make(map[string]struct{})}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Changes watches the papers directory and emits debounced batches of
// changed paths, each path listed once per batch.
func (w *Watcher) Changes(ctx context.Context) (<-chan []string, error) {
	events, err := w.Watch(ctx)
	if err != nil {
		return nil, err
	}

	batches := Debounce(ctx, events, w.quiet)
	out := make(chan []string)
	go func() {
		defer close(out)
		for batch := range batches {
			paths := make([]string, 0, len(batch))
			seen := make(map[string]struct{}, len(batch))
			for _, c := range batch {
				if _, dup := seen[c.Path]; dup {
					continue
				}
				seen[c.Path] = struct{}{}
				paths = append(paths, c.Path)
			}
			select {
			case out <- paths:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Watch starts watching the papers directory recursively. The returned
// channel is closed when ctx is cancelled or the watcher is closed.
func (w *Watcher) Watch(ctx context.Context) (<-chan Change, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	w.watcher = fw
	w.closed = false
	w.mu.Unlock()

	if err := w.addTree(w.loader.PapersDir()); err != nil {
		w.mu.Lock()
		w.watcher = nil
		w.mu.Unlock()
		_ = fw.Close()
		return nil, err
	}

	changes := make(chan Change, 64)
	go func() {
		defer close(changes)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				change, ok := w.handleFsEvent(event)
				if !ok {
					continue
				}
				select {
				case changes <- change:
				case <-ctx.Done():
					return
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				logger.Warn("watcher error: %v", err)
			}
		}
	}()

	return changes, nil
}

// handleFsEvent converts an fsnotify event into a Change. Chmod-only events
// and files the loader would skip are dropped. A new directory is watched and
// reported only if it already holds documents; a watched directory that is
// removed or moved away is reported as deleted.
func (w *Watcher) handleFsEvent(event fsnotify.Event) (Change, bool) {
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if w.forgetTree(event.Name) {
			return Change{Type: ChangeDeleted, Path: event.Name}, true
		}
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			return w.handleNewDir(event.Name)
		}
	}

	if !w.loader.Accepts(event.Name) {
		return Change{}, false
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return Change{Type: ChangeDeleted, Path: event.Name}, true
	case event.Has(fsnotify.Create):
		return Change{Type: ChangeCreated, Path: event.Name}, true
	case event.Has(fsnotify.Write):
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			return Change{}, false
		}
		return Change{Type: ChangeUpdated, Path: event.Name}, true
	default:
		return Change{}, false
	}
}

func (w *Watcher) handleNewDir(dir string) (Change, bool) {
	rel, err := filepath.Rel(w.loader.PapersDir(), dir)
	if err != nil || strings.HasPrefix(rel, "..") || isHidden(rel) {
		return Change{}, false
	}
	if err := w.addTree(dir); err != nil {
		logger.Warn("watch %s: %v", dir, err)
	}
	if !w.hasDocuments(dir) {
		return Change{}, false
	}
	return Change{Type: ChangeCreated, Path: dir}, true
}

// hasDocuments reports whether dir holds any file the loader accepts.
func (w *Watcher) hasDocuments(dir string) bool {
	found := false
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || found {
			return filepath.SkipDir
		}
		if !d.IsDir() && w.loader.Accepts(path) {
			found = true
			return filepath.SkipAll
		}
		return nil
	})
	return found
}

// addTree watches root and its non-hidden subdirectories. Without an active
// fsnotify watcher the directories are only recorded.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}

		w.mu.Lock()
		defer w.mu.Unlock()
		if w.watcher != nil && !w.closed {
			if err := w.watcher.Add(path); err != nil {
				return err
			}
		}
		w.dirs[path] = struct{}{}
		return nil
	})
}

// forgetTree drops dir and everything below it from the watched set. It
// reports whether dir was being watched.
func (w *Watcher) forgetTree(dir string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.dirs[dir]; !ok {
		return false
	}
	prefix := dir + string(filepath.Separator)
	for path := range w.dirs {
		if path != dir && !strings.HasPrefix(path, prefix) {
			continue
		}
		delete(w.dirs, path)
		if w.watcher != nil && !w.closed {
			// A removed directory has already lost its watch.
			_ = w.watcher.Remove(path)
		}
	}
	return true
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed || w.watcher == nil {
		return nil
	}
	w.closed = true
	return w.watcher.Close()
}

// Debounce groups changes that arrive within quiet of each other and emits
// them as one batch. The output closes once in closes and any pending batch
// has been flushed, or when ctx is cancelled.
func Debounce(ctx context.Context, in <-chan Change, quiet time.Duration) <-chan []Change {
	if quiet <= 0 {
		quiet = DefaultDebounce
	}
	out := make(chan []Change)
	go func() {
		defer close(out)
		var pending []Change
		timer := time.NewTimer(quiet)
		if !timer.Stop() {
			<-timer.C
		}
		defer timer.Stop()

		flush := func() bool {
			if len(pending) == 0 {
				return true
			}
			batch := pending
			pending = nil
			select {
			case out <- batch:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case c, ok := <-in:
				if !ok {
					flush()
					return
				}
				pending = append(pending, c)
				timer.Reset(quiet)
			case <-timer.C:
				if !flush() {
					return
				}
			}
		}
	}()
	return out
}
