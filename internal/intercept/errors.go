package intercept

import "errors"

// Registry errors.
var (
	// ErrUnknownFunction is returned when a name was not intercepted.
	ErrUnknownFunction = errors.New("unknown intercepted function")

	// ErrReplacementConflict is returned when a function already has a replacement.
	ErrReplacementConflict = errors.New("function redefinition conflict")

	// ErrEmptySlot is returned when deregistering a slot that holds no hook.
	ErrEmptySlot = errors.New("hook slot is empty")

	// ErrAlreadyInstalled is returned when Install is called more than once.
	ErrAlreadyInstalled = errors.New("wrappers already installed")

	// ErrDuplicateTarget is returned when Install receives the same name twice.
	ErrDuplicateTarget = errors.New("duplicate interception target")

	// ErrRawSealed is returned by raw primitives after the bootstrap phase.
	ErrRawSealed = errors.New("raw hook primitives are sealed")

	// ErrNilCallable is returned when a nil function is registered.
	ErrNilCallable = errors.New("callable is nil")
)
