package script

import "errors"

var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrNotFunction is returned when a global expected to be a function is not.
	ErrNotFunction = errors.New("global is not a function")
)
