// Package watch re-resolves manifests when their local source files change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/quantmind-br/whyml-go/internal/utils"
)

// DefaultDebounce is the quiet period before a change batch is delivered
const DefaultDebounce = 100 * time.Millisecond

// ErrAlreadyRunning is returned when Run is called twice
var ErrAlreadyRunning = errors.New("watcher already running")

// Invalidator drops a cached document; *manifest.Loader implements it
type Invalidator interface {
	Invalidate(sourceID string) bool
}

// ChangeFunc receives a debounced batch of changed source ids in lexical order
type ChangeFunc func(ctx context.Context, changed []string) error

// Options contains options for creating a Watcher
type Options struct {
	Debounce time.Duration
	Logger   *utils.Logger
}

// Watcher tracks the local files of resolved manifests. A change to a tracked
// file invalidates its cached document before the batch is delivered.
//
// Only the parent directories are registered with fsnotify so that editors
// that save by rename keep being observed.
type Watcher struct {
	fs          *fsnotify.Watcher
	invalidator Invalidator
	debounce    *Debouncer
	interval    time.Duration
	logger      *utils.Logger

	mu      sync.Mutex
	dirs    map[string]struct{}
	files   map[string]struct{}
	running bool
}

// New creates a new watcher
func New(inv Invalidator, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = utils.NewNopLogger()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		fs:          fsw,
		invalidator: inv,
		debounce:    NewDebouncer(opts.Debounce),
		interval:    opts.Debounce,
		logger:      opts.Logger.WithComponent("watch"),
		dirs:        make(map[string]struct{}),
		files:       make(map[string]struct{}),
	}, nil
}

// Track adds local source ids to the watch set. Remote ids are skipped.
func (w *Watcher) Track(sourceIDs ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, id := range sourceIDs {
		path, ok := localPath(id)
		if !ok {
			continue
		}
		w.files[path] = struct{}{}

		dir := filepath.Dir(path)
		if _, seen := w.dirs[dir]; seen {
			continue
		}
		if err := w.fs.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", dir, err)
		}
		w.dirs[dir] = struct{}{}
		w.logger.Debug().Str("dir", dir).Msg("Watching directory")
	}
	return nil
}

// Tracked returns the tracked file paths in lexical order
func (w *Watcher) Tracked() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]string, 0, len(w.files))
	for f := range w.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Run processes file events until ctx is cancelled. onChange runs on the
// calling goroutine, so batches never overlap; an error from it is logged
// and watching continues.
func (w *Watcher) Run(ctx context.Context, onChange ChangeFunc) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyRunning
	}
	w.running = true
	w.mu.Unlock()

	defer w.debounce.Stop()

	w.logger.Info().
		Int("files", len(w.Tracked())).
		Dur("debounce", w.interval).
		Msg("File watcher started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("File watcher stopped")
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			path, tracked := w.relevant(event)
			if !tracked {
				continue
			}
			w.logger.Debug().
				Str("path", path).
				Str("op", event.Op.String()).
				Msg("File event detected")

			w.invalidator.Invalidate(path)
			w.debounce.Trigger(path)

		case <-w.debounce.Ready():
			changed := w.debounce.Drain()
			if len(changed) == 0 {
				continue
			}
			w.logger.Info().Strs("changed", changed).Msg("Manifests changed")
			if err := onChange(ctx, changed); err != nil {
				w.logger.Error().Err(err).Msg("Re-resolve failed")
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error().Err(err).Msg("File watcher error")
		}
	}
}

// Close releases the fsnotify watcher
func (w *Watcher) Close() error {
	w.debounce.Stop()
	if err := w.fs.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

func (w *Watcher) relevant(event fsnotify.Event) (string, bool) {
	if event.Op == fsnotify.Chmod {
		return "", false
	}
	path := filepath.Clean(event.Name)

	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.files[path]
	return path, ok
}

func localPath(id string) (string, bool) {
	if utils.IsFileURL(id) {
		p, err := utils.FileURLToPath(id)
		if err != nil {
			return "", false
		}
		return filepath.Clean(p), true
	}
	if filepath.IsAbs(id) {
		return filepath.Clean(id), true
	}
	return "", false
}
