package intercept

// Func is an interceptable callable. A nil result means "no value".
type Func func(args []any) (any, error)

// PreHook observes a call before its body runs. Every hook of one call
// receives the same args slice.
type PreHook func(args []any, name string, slot int) error

// PostHook observes a call after its body returned. The result it receives
// is the value returned to the caller; a post-hook cannot change it.
type PostHook func(args []any, ret any, name string, slot int) error

// RawPreHook runs ahead of the original at the bootstrap layer.
type RawPreHook func(args []any, name string) error

// RawPostHook runs after the original at the bootstrap layer.
type RawPostHook func(args []any, ret any, name string) error

// Target pairs an interceptable name with its current binding.
type Target struct {
	Name string
	Fn   Func
}

// Binder installs a wrapper as the new global binding for name.
type Binder interface {
	Bind(name string, wrapper Func) error
}

// BinderFunc adapts a function to the Binder interface.
type BinderFunc func(name string, wrapper Func) error

// Bind implements Binder.
func (f BinderFunc) Bind(name string, wrapper Func) error {
	return f(name, wrapper)
}
