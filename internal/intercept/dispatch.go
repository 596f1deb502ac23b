package intercept

import (
	"fmt"
)

// wrap builds the wrapper for e. It keeps no state between calls; every
// invocation reads the tables afresh, so nested and recursive calls are safe.
func (r *Registry) wrap(e *entry) Func {
	return func(args []any) (any, error) {
		return r.dispatch(e, args)
	}
}

// dispatch runs the full hook pipeline for one call.
func (r *Registry) dispatch(e *entry, args []any) (any, error) {
	// Each call gets its own backing array so hooks can tell calls apart.
	if cap(args) == 0 {
		args = make([]any, 0, 1)
	}

	r.mu.RLock()
	pre := e.pre.snapshot()
	r.mu.RUnlock()

	for _, s := range pre {
		r.runPreHook(e.name, s, args)
	}

	r.mu.RLock()
	body := e.replacement
	if body == nil {
		body = e.original
	}
	r.mu.RUnlock()

	// Body errors and panics reach the caller unchanged; post-hooks are skipped.
	ret, err := body(args)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	post := e.post.snapshot()
	r.mu.RUnlock()

	for _, s := range post {
		r.runPostHook(e.name, s, args, ret)
	}

	return ret, nil
}

// runPreHook invokes one pre-hook, logging any error or panic.
func (r *Registry) runPreHook(name string, s slot[PreHook], args []any) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("pre-hook failed", "function", name, "slot", s.index, "err", fmt.Sprintf("panic: %v", rec))
		}
	}()
	if err := s.fn(args, name, s.index); err != nil {
		r.logger.Error("pre-hook failed", "function", name, "slot", s.index, "err", err)
	}
}

// runPostHook invokes one post-hook, logging any error or panic.
func (r *Registry) runPostHook(name string, s slot[PostHook], args []any, ret any) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("post-hook failed", "function", name, "slot", s.index, "err", fmt.Sprintf("panic: %v", rec))
		}
	}()
	if err := s.fn(args, ret, name, s.index); err != nil {
		r.logger.Error("post-hook failed", "function", name, "slot", s.index, "err", err)
	}
}
