// Package census computes which global names a host introduced during its own startup.
//
// A census compares two snapshots of a global namespace: one taken before the
// host's startup code runs and one taken after. Names present in the first
// snapshot are never part of the result, even if the host reassigned them.
package census

import "sort"

// Kind classifies the value bound to a global name.
type Kind int

const (
	// KindValue is any non-callable value.
	KindValue Kind = iota
	// KindFunction is a callable value.
	KindFunction
)

// String returns a string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindFunction:
		return "function"
	case KindValue:
		return "value"
	default:
		return "unknown"
	}
}

// Snapshot maps every global name to the kind of value bound to it at the
// moment the snapshot was taken.
type Snapshot map[string]Kind

// Names returns the snapshot's names in sorted order.
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Result is the immutable outcome of a census.
type Result struct {
	// Functions are the introduced names bound to callables.
	Functions []string
	// Vars are the introduced names bound to anything else.
	Vars []string

	functions map[string]bool
}

// Diff returns the names present in after but absent from before,
// partitioned by the kind recorded in after.
func Diff(before, after Snapshot) Result {
	res := Result{
		Functions: make([]string, 0),
		Vars:      make([]string, 0),
		functions: make(map[string]bool),
	}

	for name, kind := range after {
		if _, existed := before[name]; existed {
			continue
		}
		if kind == KindFunction {
			res.Functions = append(res.Functions, name)
			res.functions[name] = true
		} else {
			res.Vars = append(res.Vars, name)
		}
	}

	sort.Strings(res.Functions)
	sort.Strings(res.Vars)
	return res
}

// IsFunction returns true if name was introduced and bound to a callable.
func (r Result) IsFunction(name string) bool {
	return r.functions[name]
}

// Len returns the total number of introduced names.
func (r Result) Len() int {
	return len(r.Functions) + len(r.Vars)
}
