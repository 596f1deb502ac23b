package script

import (
	"context"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// State wraps a gopher-lua state with full standard libraries. Mods are
// trusted code, so nothing is sandboxed.
//
// The mutex serialises entry points called from Go (DoFile, DoString,
// CallGlobal). Code already running inside the state must use L directly.
type State struct {
	L *lua.LState

	mu     sync.Mutex
	closed bool
}

// StateOption configures a State.
type StateOption func(*lua.Options)

// WithCallStackSize sets the Lua call stack size.
func WithCallStackSize(n int) StateOption {
	return func(o *lua.Options) {
		o.CallStackSize = n
	}
}

// WithGoStackTrace includes Go stack traces in Lua errors.
func WithGoStackTrace(enabled bool) StateOption {
	return func(o *lua.Options) {
		o.IncludeGoStackTrace = enabled
	}
}

// NewState creates a Lua state with every standard library opened.
func NewState(opts ...StateOption) *State {
	var o lua.Options
	for _, opt := range opts {
		opt(&o)
	}
	return &State{L: lua.NewState(o)}
}

// DoFile runs a Lua file.
func (s *State) DoFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	return doWithRecovery(func() error {
		return s.L.DoFile(path)
	})
}

// DoString runs a chunk of Lua source.
func (s *State) DoString(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	return doWithRecovery(func() error {
		return s.L.DoString(code)
	})
}

func doWithRecovery(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn()
}

// CallGlobal calls the global function name with args.
// Returns an empty slice (not nil) if the function returns no values.
func (s *State) CallGlobal(name string, args ...lua.LValue) ([]lua.LValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrStateClosed
	}

	fn := s.L.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%w: %s (got %s)", ErrNotFunction, name, fn.Type())
	}

	top := s.L.GetTop()
	var callErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				callErr = fmt.Errorf("lua panic: %v", r)
			}
		}()
		callErr = s.L.CallByParam(lua.P{Fn: fn, NRet: lua.MultRet, Protect: true}, args...)
	}()
	if callErr != nil {
		s.L.SetTop(top)
		return nil, callErr
	}

	n := s.L.GetTop() - top
	results := make([]lua.LValue, 0, n)
	for i := 1; i <= n; i++ {
		results = append(results, s.L.Get(top+i))
	}
	s.L.SetTop(top)
	return results, nil
}

// GetGlobal returns a global value.
func (s *State) GetGlobal(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// SetContext makes running Lua code stop with an error once ctx is done.
func (s *State) SetContext(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.L.SetContext(ctx)
	}
}

// Close releases the Lua state. Later calls return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}

// IsClosed returns true once Close has been called.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
