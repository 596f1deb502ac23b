package intercept

import (
	"fmt"
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dshills/hookline/internal/logging"
)

// entry is the live registry record for one intercepted name.
type entry struct {
	name string

	// original is the unwrapped (or bootstrap-composed) body.
	original Func

	// replacement, when set, runs instead of original.
	replacement Func

	pre  slotTable[PreHook]
	post slotTable[PostHook]

	// wrapper is bound into the host namespace once and never changes.
	wrapper Func
}

// Registry owns every intercepted function and its hook tables.
// Construct one per host session; it is never shared between hosts.
type Registry struct {
	mu sync.RWMutex

	entries   map[string]*entry
	installed bool

	raw *Raw

	logger *log.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for usage warnings and hook failures.
func WithLogger(l *log.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.Component(r.logger, "intercept")
	r.raw = &Raw{reg: r}
	return r
}

// Install creates an entry for every target and binds its wrapper through
// binder. It may run only once per registry; a second call returns
// ErrAlreadyInstalled without touching any binding. If a bind fails, the
// names already bound are rebound to their originals and the registry
// returns to the uninstalled state, so Install may be retried.
func (r *Registry) Install(targets []Target, binder Binder) error {
	r.mu.Lock()
	if r.installed {
		r.mu.Unlock()
		return ErrAlreadyInstalled
	}

	created := make([]*entry, 0, len(targets))
	seen := make(map[string]bool, len(targets))
	for _, t := range targets {
		if seen[t.Name] {
			r.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrDuplicateTarget, t.Name)
		}
		if t.Fn == nil {
			r.mu.Unlock()
			return fmt.Errorf("target %s: %w", t.Name, ErrNilCallable)
		}
		seen[t.Name] = true

		e := &entry{name: t.Name, original: t.Fn}
		e.wrapper = r.wrap(e)
		created = append(created, e)
	}

	for _, e := range created {
		r.entries[e.name] = e
	}
	r.installed = true
	r.mu.Unlock()

	// Binding happens outside the lock; a binder may read back through the registry.
	for i, e := range created {
		if err := binder.Bind(e.name, e.wrapper); err != nil {
			r.rollback(created[:i], binder)
			return fmt.Errorf("binding wrapper for %s: %w", e.name, err)
		}
	}

	r.logger.Debug("wrappers installed", "count", len(created))
	return nil
}

// rollback undoes a partial Install.
func (r *Registry) rollback(bound []*entry, binder Binder) {
	for _, e := range bound {
		if err := binder.Bind(e.name, e.original); err != nil {
			r.logger.Error("failed to restore original binding", "function", e.name, "err", err)
		}
	}

	r.mu.Lock()
	r.entries = make(map[string]*entry)
	r.installed = false
	r.mu.Unlock()
}

// Installed returns true once Install has succeeded.
func (r *Registry) Installed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.installed
}

// lookup returns the entry for name. Callers must hold r.mu.
func (r *Registry) lookup(name string) (*entry, bool) {
	e, ok := r.entries[name]
	return e, ok
}

// RegisterReplacement sets the one replacement allowed for name.
// Returns ErrReplacementConflict if a replacement already exists (the
// existing one is kept) and ErrUnknownFunction if name was not intercepted.
func (r *Registry) RegisterReplacement(name string, fn Func) error {
	if fn == nil {
		return ErrNilCallable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.lookup(name)
	if ok && e.replacement != nil {
		r.logger.Error("conflict: mod attempted to redefine already redefined function", "function", name)
		return fmt.Errorf("%w: %s", ErrReplacementConflict, name)
	}
	if !ok {
		r.logger.Warn("mod attempted to redefine non-existent function", "function", name)
		return fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}

	e.replacement = fn
	return nil
}

// RegisterPreHook stores hook in the lowest free pre-hook slot for name and
// returns the slot index. Returns -1 and ErrUnknownFunction for unknown names.
func (r *Registry) RegisterPreHook(name string, hook PreHook) (int, error) {
	if hook == nil {
		return -1, ErrNilCallable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.lookup(name)
	if !ok {
		r.logger.Warn("mod attempted to register pre-hook for non-existent function", "function", name)
		return -1, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	return e.pre.claim(hook), nil
}

// RegisterPostHook stores hook in the lowest free post-hook slot for name and
// returns the slot index. Returns -1 and ErrUnknownFunction for unknown names.
func (r *Registry) RegisterPostHook(name string, hook PostHook) (int, error) {
	if hook == nil {
		return -1, ErrNilCallable
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.lookup(name)
	if !ok {
		r.logger.Warn("mod attempted to register post-hook for non-existent function", "function", name)
		return -1, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	return e.post.claim(hook), nil
}

// DeregisterPreHook vacates the pre-hook slot at index. Other slots keep
// their indices.
func (r *Registry) DeregisterPreHook(name string, index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.lookup(name)
	if !ok {
		r.logger.Warn("mod attempted to deregister pre-hook for non-existent function", "function", name)
		return fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	if !e.pre.vacate(index) {
		r.logger.Warn("mod attempted to deregister empty pre-hook slot", "function", name, "slot", index)
		return fmt.Errorf("%w: %s pre-hook %d", ErrEmptySlot, name, index)
	}
	return nil
}

// DeregisterPostHook vacates the post-hook slot at index. Other slots keep
// their indices.
func (r *Registry) DeregisterPostHook(name string, index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.lookup(name)
	if !ok {
		r.logger.Warn("mod attempted to deregister post-hook for non-existent function", "function", name)
		return fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	if !e.post.vacate(index) {
		r.logger.Warn("mod attempted to deregister empty post-hook slot", "function", name, "slot", index)
		return fmt.Errorf("%w: %s post-hook %d", ErrEmptySlot, name, index)
	}
	return nil
}

// OriginalFunction returns the current original body for name. It never
// returns the wrapper, so calling it from a replacement does not recurse.
func (r *Registry) OriginalFunction(name string) (Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.lookup(name)
	if !ok {
		r.logger.Error("mod attempted to fetch non-existent original function", "function", name)
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	return e.original, nil
}

// FunctionOverwritten returns true if a replacement is set for name.
func (r *Registry) FunctionOverwritten(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.lookup(name)
	return ok && e.replacement != nil
}

// Has returns true if name is intercepted.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.lookup(name)
	return ok
}

// Names returns every intercepted name in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HookCounts returns the number of live pre-hooks and post-hooks for name.
func (r *Registry) HookCounts(name string) (pre, post int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.lookup(name)
	if !ok {
		return 0, 0
	}
	return e.pre.count(), e.post.count()
}
