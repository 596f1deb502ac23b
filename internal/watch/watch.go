// Package watch reports changes to mod and game files so a development
// session can restart.
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/dshills/hookline/internal/logging"
)

// DefaultDelay is the quiet period after the last change before a batch
// is reported.
const DefaultDelay = 250 * time.Millisecond

// ErrClosed is returned when using a closed watcher.
var ErrClosed = errors.New("watcher is closed")

// DefaultExtensions are the file types that trigger a restart.
var DefaultExtensions = []string{".lua", ".json", ".yaml", ".yml", ".toml"}

// Watcher coalesces file system events under a set of paths.
type Watcher struct {
	fsw *fsnotify.Watcher

	delay  time.Duration
	exts   map[string]bool
	logger *log.Logger

	mu     sync.Mutex
	closed bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDelay sets the debounce delay.
func WithDelay(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.delay = d
		}
	}
}

// WithExtensions replaces the file extensions that count as changes.
func WithExtensions(exts ...string) Option {
	return func(w *Watcher) {
		w.exts = make(map[string]bool, len(exts))
		for _, e := range exts {
			w.exts[strings.ToLower(e)] = true
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(l *log.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// New watches paths. Directories are watched recursively; for a file the
// containing directory is watched. Missing paths are skipped.
func New(paths []string, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{fsw: fsw, delay: DefaultDelay}
	WithExtensions(DefaultExtensions...)(w)
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logging.Component(w.logger, "watch")

	for _, p := range paths {
		if err := w.add(p); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

func (w *Watcher) add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			w.logger.Debug("skipping missing path", "path", abs)
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return w.fsw.Add(filepath.Dir(abs))
	}
	return filepath.WalkDir(abs, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if addErr := w.fsw.Add(p); addErr != nil {
				w.logger.Warn("cannot watch directory", "path", p, "err", addErr)
			}
		}
		return nil
	})
}

// Paths returns the watched directories.
func (w *Watcher) Paths() []string {
	list := w.fsw.WatchList()
	sort.Strings(list)
	return list
}

func (w *Watcher) relevant(name string) bool {
	return w.exts[strings.ToLower(filepath.Ext(name))]
}

// Run calls onChange with the sorted changed paths each time the tree
// has been quiet for the debounce delay. It returns when ctx is done.
func (w *Watcher) Run(ctx context.Context, onChange func(paths []string)) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	w.mu.Unlock()

	pending := make(map[string]bool)
	timer := time.NewTimer(w.delay)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return ErrClosed
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = w.add(ev.Name)
					continue
				}
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !w.relevant(ev.Name) {
				continue
			}
			pending[ev.Name] = true
			timer.Reset(w.delay)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return ErrClosed
			}
			w.logger.Warn("watch error", "err", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			pending = make(map[string]bool)

			w.logger.Info("files changed", "count", len(changed))
			onChange(changed)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.fsw.Close()
}
