package intercept

import (
	"fmt"
	"sort"
	"sync"
)

// Namespace is a map-backed global namespace for hosts written in Go.
// It serves both as the source of Install targets and as their Binder.
type Namespace struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewNamespace creates an empty namespace.
func NewNamespace() *Namespace {
	return &Namespace{funcs: make(map[string]Func)}
}

// Define binds fn to name, overwriting any existing binding.
func (n *Namespace) Define(name string, fn Func) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.funcs[name] = fn
}

// Lookup returns the current binding for name.
func (n *Namespace) Lookup(name string) (Func, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	fn, ok := n.funcs[name]
	return fn, ok
}

// Call invokes the current binding for name.
func (n *Namespace) Call(name string, args ...any) (any, error) {
	fn, ok := n.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	return fn(args)
}

// Bind implements Binder.
func (n *Namespace) Bind(name string, wrapper Func) error {
	n.Define(name, wrapper)
	return nil
}

// Targets returns the bindings for names as Install targets.
// Unknown names are skipped.
func (n *Namespace) Targets(names []string) []Target {
	n.mu.RLock()
	defer n.mu.RUnlock()

	targets := make([]Target, 0, len(names))
	for _, name := range names {
		if fn, ok := n.funcs[name]; ok {
			targets = append(targets, Target{Name: name, Fn: fn})
		}
	}
	return targets
}

// Names returns every bound name in sorted order.
func (n *Namespace) Names() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	names := make([]string, 0, len(n.funcs))
	for name := range n.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
