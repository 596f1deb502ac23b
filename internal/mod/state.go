package mod

// State is the lifecycle state of a loaded mod.
type State int

// Mod states.
const (
	// StateLoaded - entry script ran; init not yet called.
	StateLoaded State = iota

	// StateInitialized - init callback returned without error.
	StateInitialized

	// StateFailed - init callback failed.
	StateFailed
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateInitialized:
		return "initialized"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
