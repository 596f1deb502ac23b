package census

import (
	"reflect"
	"testing"
)

func TestDiff(t *testing.T) {
	before := Snapshot{
		"print":    KindFunction,
		"loader":   KindFunction,
		"_VERSION": KindValue,
	}
	after := Snapshot{
		"print":    KindFunction,
		"loader":   KindValue, // reassigned by the host, still excluded
		"_VERSION": KindValue,
		"addIntro": KindFunction,
		"nextTurn": KindFunction,
		"weekNum":  KindValue,
		"cityNews": KindValue,
	}

	res := Diff(before, after)

	wantFuncs := []string{"addIntro", "nextTurn"}
	if !reflect.DeepEqual(res.Functions, wantFuncs) {
		t.Errorf("Functions = %v, want %v", res.Functions, wantFuncs)
	}
	wantVars := []string{"cityNews", "weekNum"}
	if !reflect.DeepEqual(res.Vars, wantVars) {
		t.Errorf("Vars = %v, want %v", res.Vars, wantVars)
	}
	if res.Len() != 4 {
		t.Errorf("Len() = %d, want 4", res.Len())
	}
}

func TestDiffEmpty(t *testing.T) {
	res := Diff(nil, nil)
	if res.Functions == nil || res.Vars == nil {
		t.Fatal("expected non-nil slices")
	}
	if res.Len() != 0 {
		t.Errorf("Len() = %d, want 0", res.Len())
	}
}

func TestIsFunction(t *testing.T) {
	res := Diff(Snapshot{}, Snapshot{"add": KindFunction, "count": KindValue})

	tests := []struct {
		name string
		want bool
	}{
		{"add", true},
		{"count", false},
		{"missing", false},
	}

	for _, tt := range tests {
		if got := res.IsFunction(tt.name); got != tt.want {
			t.Errorf("IsFunction(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{KindFunction, "function"},
		{KindValue, "value"},
		{Kind(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestSnapshotNames(t *testing.T) {
	s := Snapshot{"b": KindValue, "a": KindFunction, "c": KindValue}
	want := []string{"a", "b", "c"}
	if got := s.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}
