package mod

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/dshills/hookline/internal/logging"
)

// DefaultDir is the mods directory used when none is configured.
const DefaultDir = "mods"

// Loader discovers mods in a directory.
type Loader struct {
	dir    string
	logger *log.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLoaderLogger sets the logger for skipped folders.
func WithLoaderLogger(l *log.Logger) LoaderOption {
	return func(ld *Loader) {
		ld.logger = l
	}
}

// NewLoader creates a loader for dir.
func NewLoader(dir string, opts ...LoaderOption) *Loader {
	if dir == "" {
		dir = DefaultDir
	}
	l := &Loader{dir: dir}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = logging.Component(l.logger, "mods")
	return l
}

// Dir returns the mods directory.
func (l *Loader) Dir() string {
	return l.dir
}

// Discover returns the manifest of every mod folder in the directory,
// ordered by folder name. The directory is created when missing. Folders
// without a manifest or entry script are ignored; folders whose manifest
// cannot be read are logged and skipped.
func (l *Loader) Discover() ([]*Manifest, error) {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create mods dir: %w", err)
	}

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read mods dir: %w", err)
	}

	manifests := make([]*Manifest, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		m, err := l.inspect(filepath.Join(l.dir, entry.Name()))
		if err != nil {
			l.logger.Error("failed to load mod folder", "folder", entry.Name(), "err", err)
			continue
		}
		if m != nil {
			manifests = append(manifests, m)
		}
	}
	return manifests, nil
}

// inspect returns nil, nil for folders that are not mods.
func (l *Loader) inspect(path string) (*Manifest, error) {
	m, err := LoadManifestFromDir(path)
	if errors.Is(err, ErrNoManifest) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(m.EntryPath()); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}
