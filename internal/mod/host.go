package mod

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/dshills/hookline/internal/logging"
	"github.com/dshills/hookline/internal/version"
)

// Entry is a mod's loaded entry script.
type Entry interface {
	// Init runs the mod's init callback. Mods without one return nil.
	Init() error
}

// EntryLoader runs a mod's entry script.
type EntryLoader interface {
	LoadEntry(m *Manifest) (Entry, error)
}

// EntryLoaderFunc adapts a function to the EntryLoader interface.
type EntryLoaderFunc func(m *Manifest) (Entry, error)

// LoadEntry implements EntryLoader.
func (f EntryLoaderFunc) LoadEntry(m *Manifest) (Entry, error) {
	return f(m)
}

// Mod is a loaded mod.
type Mod struct {
	Manifest *Manifest
	Entry    Entry
	State    State
	Err      error
}

// Host loads mods and tracks the loaded set.
type Host struct {
	mu sync.RWMutex

	loader   EntryLoader
	running  version.Version
	disabled map[string]bool
	logger   *log.Logger

	// Loaded mods in load order, and the same mods by id.
	loaded   []*Mod
	registry map[string]*Mod
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithLogger sets the host logger.
func WithLogger(l *log.Logger) HostOption {
	return func(h *Host) {
		h.logger = l
	}
}

// WithRunningVersion overrides the loader version mods are checked against.
func WithRunningVersion(v version.Version) HostOption {
	return func(h *Host) {
		h.running = v
	}
}

// WithDisabled skips the given mod ids.
func WithDisabled(ids ...string) HostOption {
	return func(h *Host) {
		for _, id := range ids {
			h.disabled[id] = true
		}
	}
}

// NewHost creates an empty host that runs entries through loader.
func NewHost(loader EntryLoader, opts ...HostOption) *Host {
	h := &Host{
		loader:   loader,
		running:  version.Current,
		disabled: make(map[string]bool),
		registry: make(map[string]*Mod),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = logging.Component(h.logger, "mods")
	return h
}

// Load loads each manifest in order. Mods that are skipped or fail are
// logged; the returned error joins their reasons.
func (h *Host) Load(manifests []*Manifest) error {
	var errs []error
	for _, m := range manifests {
		if err := h.load(m); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m.Label(), err))
		}
	}
	return errors.Join(errs...)
}

func (h *Host) load(m *Manifest) error {
	if h.disabled[m.ID] {
		h.logger.Info("mod disabled by configuration", "mod", m.Label())
		return ErrDisabled
	}

	if !m.Compatibility(h.running).Satisfied() {
		h.logger.Warn("unable to load mod; required loader version too high",
			"mod", m.Label(), "required", m.RequiredVersion.String(), "running", h.running.String())
		return ErrUnsupportedVersion
	}

	h.mu.RLock()
	existing := h.registry[m.ID]
	h.mu.RUnlock()

	if existing != nil {
		if existing.Manifest.Version.Compare(m.Version) >= 0 {
			h.logger.Warn("attempted to load older version of already loaded mod",
				"mod", m.Label(), "loaded", existing.Manifest.Version.String(), "version", m.Version.String())
			return ErrOlderDuplicate
		}
		h.logger.Warn("loading newer version of already loaded mod",
			"mod", m.Label(), "loaded", existing.Manifest.Version.String(), "version", m.Version.String())
	}

	entry, err := h.loadEntry(m)
	if err != nil {
		h.logger.Error("failed to load mod", "mod", m.Label(), "err", err)
		return err
	}

	mod := &Mod{Manifest: m, Entry: entry, State: StateLoaded}

	h.mu.Lock()
	defer h.mu.Unlock()
	if existing != nil {
		for i, l := range h.loaded {
			if l == existing {
				h.loaded[i] = mod
				break
			}
		}
	} else {
		h.loaded = append(h.loaded, mod)
	}
	h.registry[m.ID] = mod
	return nil
}

func (h *Host) loadEntry(m *Manifest) (entry Entry, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("entry panic: %v", r)
		}
	}()
	if h.loader == nil {
		return nil, ErrNoEntryPoint
	}
	return h.loader.LoadEntry(m)
}

// InitAll calls every loaded mod's init callback once, in load order.
// A failing mod is marked StateFailed; the rest still run.
func (h *Host) InitAll() error {
	var errs []error
	for _, mod := range h.Loaded() {
		if mod.State != StateLoaded {
			continue
		}
		if err := initEntry(mod.Entry); err != nil {
			h.logger.Error(fmt.Sprintf("mod %s failed to initialise", mod.Manifest.Label()), "err", err)
			h.setState(mod, StateFailed, err)
			errs = append(errs, fmt.Errorf("%s: %w", mod.Manifest.Label(), err))
			continue
		}
		h.setState(mod, StateInitialized, nil)
	}
	return errors.Join(errs...)
}

func initEntry(e Entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("init panic: %v", r)
		}
	}()
	if e == nil {
		return nil
	}
	return e.Init()
}

func (h *Host) setState(m *Mod, s State, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	m.State = s
	m.Err = err
}

// Count returns the number of loaded mods.
func (h *Host) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.loaded)
}

// Loaded returns the loaded mods in load order.
func (h *Host) Loaded() []*Mod {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Mod, len(h.loaded))
	copy(out, h.loaded)
	return out
}

// Get returns the loaded mod with id.
func (h *Host) Get(id string) (*Mod, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	m, ok := h.registry[id]
	return m, ok
}

// Summary formats the loaded count for the startup log, e.g. "Loaded 1 mod.".
func Summary(n int) string {
	return fmt.Sprintf("Loaded %d %s.", n, Plural(n, "mod"))
}

// Plural returns word with an "s" unless n is one.
func Plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
