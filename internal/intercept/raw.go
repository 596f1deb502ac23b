package intercept

import "fmt"

// Raw exposes the bootstrap-only primitives that rewrite an entry's original
// body directly. Each primitive composes around the current original, so
// they stack beneath every public hook and replacement. After Seal every
// primitive fails with ErrRawSealed; sealing is permanent.
type Raw struct {
	reg    *Registry
	sealed bool // guarded by reg.mu
}

// Raw returns the registry's raw primitives.
func (r *Registry) Raw() *Raw {
	return r.raw
}

// PreHook splices hook ahead of the current original body for name.
// A hook error aborts the call and is returned to the caller.
func (b *Raw) PreHook(name string, hook RawPreHook) error {
	if hook == nil {
		return ErrNilCallable
	}
	return b.compose(name, "raw pre-hook", func(base Func) Func {
		return func(args []any) (any, error) {
			if err := hook(args, name); err != nil {
				return nil, err
			}
			return base(args)
		}
	})
}

// PostHook splices hook after the current original body for name.
// The hook sees the body's result; the result returned to the caller is unchanged.
func (b *Raw) PostHook(name string, hook RawPostHook) error {
	if hook == nil {
		return ErrNilCallable
	}
	return b.compose(name, "raw post-hook", func(base Func) Func {
		return func(args []any) (any, error) {
			ret, err := base(args)
			if err != nil {
				return nil, err
			}
			if err := hook(args, ret, name); err != nil {
				return nil, err
			}
			return ret, nil
		}
	})
}

// Replace overwrites the original body for name, discarding any raw hooks
// composed so far. This bypasses the public one-replacement rule.
func (b *Raw) Replace(name string, fn Func) error {
	if fn == nil {
		return ErrNilCallable
	}
	return b.compose(name, "raw replacement", func(Func) Func {
		return fn
	})
}

// Seal permanently disables the raw primitives.
func (b *Raw) Seal() {
	b.reg.mu.Lock()
	defer b.reg.mu.Unlock()
	b.sealed = true
}

// Sealed returns true once Seal has been called.
func (b *Raw) Sealed() bool {
	b.reg.mu.RLock()
	defer b.reg.mu.RUnlock()
	return b.sealed
}

// compose replaces the original body for name with build(original).
func (b *Raw) compose(name, what string, build func(base Func) Func) error {
	r := b.reg
	r.mu.Lock()
	defer r.mu.Unlock()

	if b.sealed {
		r.logger.Error("attempted to use sealed "+what, "function", name)
		return fmt.Errorf("%w: %s", ErrRawSealed, what)
	}

	e, ok := r.lookup(name)
	if !ok {
		r.logger.Error("attempted to create "+what+" for non-existent function", "function", name)
		return fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}

	e.original = build(e.original)
	return nil
}
