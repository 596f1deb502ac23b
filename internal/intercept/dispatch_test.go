package intercept

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func TestBodyChosenPerCall(t *testing.T) {
	reg, ns, _ := newTestHost(t)

	if got := mustCall(t, ns, "add", 2, 3); got != 5 {
		t.Fatalf("add(2, 3) = %v, want 5", got)
	}

	// Registered after installation, takes effect on the very next call.
	_ = reg.RegisterReplacement("add", func(args []any) (any, error) {
		return args[0].(int) * args[1].(int), nil
	})
	if got := mustCall(t, ns, "add", 2, 3); got != 6 {
		t.Errorf("add(2, 3) after replacement = %v, want 6", got)
	}
}

func TestExactlyOneBodyRuns(t *testing.T) {
	var ran []string
	ns := NewNamespace()
	ns.Define("f", func([]any) (any, error) {
		ran = append(ran, "original")
		return nil, nil
	})
	reg := NewRegistry()
	if err := reg.Install(ns.Targets([]string{"f"}), ns); err != nil {
		t.Fatal(err)
	}
	_ = reg.RegisterReplacement("f", func([]any) (any, error) {
		ran = append(ran, "replacement")
		return nil, nil
	})

	if _, err := ns.Call("f"); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ran, []string{"replacement"}) {
		t.Errorf("bodies run = %v, want [replacement]", ran)
	}
}

func TestHooksIsolatedAcrossFunctions(t *testing.T) {
	reg, ns, _ := newTestHost(t)

	var seen []string
	_, _ = reg.RegisterPreHook("add", func(_ []any, name string, _ int) error {
		seen = append(seen, "pre:"+name)
		return nil
	})
	_, _ = reg.RegisterPostHook("add", func(_ []any, _ any, name string, _ int) error {
		seen = append(seen, "post:"+name)
		return nil
	})

	mustCall(t, ns, "sub", 5, 1)
	if len(seen) != 0 {
		t.Errorf("calling sub ran add hooks: %v", seen)
	}

	mustCall(t, ns, "add", 1, 1)
	want := []string{"pre:add", "post:add"}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("hooks = %v, want %v", seen, want)
	}
}

func TestHookArguments(t *testing.T) {
	reg, ns, _ := newTestHost(t)

	var preArgs, postArgs []any
	var preSlot, postSlot int
	var postRet any

	_, _ = reg.RegisterPreHook("add", func([]any, string, int) error { return nil })
	_, _ = reg.RegisterPreHook("add", func(args []any, name string, slot int) error {
		preArgs, preSlot = args, slot
		return nil
	})
	_, _ = reg.RegisterPostHook("add", func(args []any, ret any, name string, slot int) error {
		postArgs, postRet, postSlot = args, ret, slot
		return nil
	})

	mustCall(t, ns, "add", 7, 8)

	if !reflect.DeepEqual(preArgs, []any{7, 8}) || preSlot != 1 {
		t.Errorf("pre-hook got args %v slot %d, want [7 8] slot 1", preArgs, preSlot)
	}
	if !reflect.DeepEqual(postArgs, []any{7, 8}) || postSlot != 0 || postRet != 15 {
		t.Errorf("post-hook got args %v ret %v slot %d, want [7 8] 15 slot 0", postArgs, postRet, postSlot)
	}
}

func TestFailingPreHookIsolated(t *testing.T) {
	reg, ns, logs := newTestHost(t)

	var order []string
	_, _ = reg.RegisterPreHook("add", func([]any, string, int) error {
		order = append(order, "pre0")
		return errors.New("boom")
	})
	_, _ = reg.RegisterPreHook("add", func([]any, string, int) error {
		order = append(order, "pre1")
		panic("kaboom")
	})
	_, _ = reg.RegisterPreHook("add", func([]any, string, int) error {
		order = append(order, "pre2")
		return nil
	})
	_, _ = reg.RegisterPostHook("add", func([]any, any, string, int) error {
		order = append(order, "post0")
		return nil
	})

	ret, err := ns.Call("add", 2, 3)
	if err != nil {
		t.Fatalf("add() error = %v, want nil (hook failures are not propagated)", err)
	}
	if ret != 5 {
		t.Errorf("add() = %v, want 5", ret)
	}

	want := []string{"pre0", "pre1", "pre2", "post0"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}

	out := logs.String()
	for _, fragment := range []string{"pre-hook failed", "function=add", "slot=0", "slot=1", "boom", "kaboom"} {
		if !bytes.Contains([]byte(out), []byte(fragment)) {
			t.Errorf("log %q missing %q", out, fragment)
		}
	}
}

func TestFailingPostHookIsolated(t *testing.T) {
	reg, ns, logs := newTestHost(t)

	ran := false
	_, _ = reg.RegisterPostHook("add", func([]any, any, string, int) error {
		return errors.New("post boom")
	})
	_, _ = reg.RegisterPostHook("add", func([]any, any, string, int) error {
		ran = true
		return nil
	})

	if got := mustCall(t, ns, "add", 1, 2); got != 3 {
		t.Errorf("add() = %v, want 3", got)
	}
	if !ran {
		t.Error("second post-hook did not run")
	}
	if !bytes.Contains(logs.Bytes(), []byte("post-hook failed")) {
		t.Errorf("expected post-hook failure log, got %q", logs.String())
	}
}

func TestReplacementErrorPropagates(t *testing.T) {
	reg, ns, _ := newTestHost(t)
	errReplacement := errors.New("replacement failed")

	postRan := false
	_ = reg.RegisterReplacement("add", func([]any) (any, error) {
		return nil, errReplacement
	})
	_, _ = reg.RegisterPostHook("add", func([]any, any, string, int) error {
		postRan = true
		return nil
	})

	_, err := ns.Call("add", 1, 2)
	if err != errReplacement {
		t.Errorf("add() error = %v, want the replacement's error unchanged", err)
	}
	if postRan {
		t.Error("post-hook ran after the body failed")
	}
}

func TestReplacementPanicPropagates(t *testing.T) {
	reg, ns, _ := newTestHost(t)
	_ = reg.RegisterReplacement("add", func([]any) (any, error) {
		panic("replacement panic")
	})

	defer func() {
		if rec := recover(); rec != "replacement panic" {
			t.Errorf("recovered %v, want replacement panic", rec)
		}
	}()
	_, _ = ns.Call("add", 1, 2)
	t.Error("expected panic to reach the caller")
}

func TestPostHookObserveOnly(t *testing.T) {
	reg, ns, _ := newTestHost(t)

	var observed []any
	_, _ = reg.RegisterPostHook("add", func(args []any, ret any, _ string, _ int) error {
		observed = append(observed, ret)
		_ = ret.(int) * 2 // doubling is local to the hook
		return nil
	})
	_, _ = reg.RegisterPostHook("add", func(args []any, ret any, _ string, _ int) error {
		observed = append(observed, ret)
		return nil
	})

	if got := mustCall(t, ns, "add", 2, 3); got != 5 {
		t.Errorf("add(2, 3) = %v, want 5", got)
	}
	if !reflect.DeepEqual(observed, []any{5, 5}) {
		t.Errorf("observed = %v, want [5 5]", observed)
	}
}

func TestReplacementDelegatesToOriginal(t *testing.T) {
	reg, ns, _ := newTestHost(t)

	err := reg.RegisterReplacement("add", func(args []any) (any, error) {
		original, err := reg.OriginalFunction("add")
		if err != nil {
			return nil, err
		}
		ret, err := original(args)
		if err != nil {
			return nil, err
		}
		return ret.(int) + 1, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	if got := mustCall(t, ns, "add", 2, 3); got != 6 {
		t.Errorf("add(2, 3) = %v, want 6", got)
	}
}

func TestSlotReuseInvocationOrder(t *testing.T) {
	reg, ns, _ := newTestHost(t)

	var order []string
	first, _ := reg.RegisterPreHook("add", func([]any, string, int) error {
		order = append(order, "old-0")
		return nil
	})
	_, _ = reg.RegisterPreHook("add", func([]any, string, int) error {
		order = append(order, "slot-1")
		return nil
	})

	if err := reg.DeregisterPreHook("add", first); err != nil {
		t.Fatal(err)
	}
	idx, _ := reg.RegisterPreHook("add", func([]any, string, int) error {
		order = append(order, "new-0")
		return nil
	})
	if idx != 0 {
		t.Fatalf("new hook slot = %d, want 0", idx)
	}

	mustCall(t, ns, "add", 1, 1)
	want := []string{"new-0", "slot-1"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestNoValueResult(t *testing.T) {
	ns := NewNamespace()
	ns.Define("noop", func([]any) (any, error) { return nil, nil })
	reg := NewRegistry()
	if err := reg.Install(ns.Targets([]string{"noop"}), ns); err != nil {
		t.Fatal(err)
	}

	var seen any = "unset"
	_, _ = reg.RegisterPostHook("noop", func(_ []any, ret any, _ string, _ int) error {
		seen = ret
		return nil
	})

	ret, err := ns.Call("noop")
	if err != nil || ret != nil {
		t.Errorf("noop() = %v, %v; want nil, nil", ret, err)
	}
	if seen != nil {
		t.Errorf("post-hook saw %v, want nil", seen)
	}
}

func TestRegistrationDuringDispatch(t *testing.T) {
	reg, ns, _ := newTestHost(t)

	lateCalls := 0
	late := func([]any, string, int) error {
		lateCalls++
		return nil
	}

	registered := false
	_, _ = reg.RegisterPreHook("add", func([]any, string, int) error {
		if !registered {
			registered = true
			_, _ = reg.RegisterPreHook("add", late)
		}
		return nil
	})

	mustCall(t, ns, "add", 1, 1)
	if lateCalls != 0 {
		t.Errorf("hook registered mid-dispatch ran %d times in the same dispatch, want 0", lateCalls)
	}

	mustCall(t, ns, "add", 1, 1)
	if lateCalls != 1 {
		t.Errorf("hook registered mid-dispatch ran %d times on the next dispatch, want 1", lateCalls)
	}
}

func TestDeregistrationDuringDispatch(t *testing.T) {
	reg, ns, _ := newTestHost(t)

	calls := 0
	var self int
	self, _ = reg.RegisterPostHook("add", func([]any, any, string, int) error {
		calls++
		return reg.DeregisterPostHook("add", self)
	})

	mustCall(t, ns, "add", 1, 1)
	mustCall(t, ns, "add", 1, 1)
	if calls != 1 {
		t.Errorf("self-deregistering hook ran %d times, want 1", calls)
	}
}

func TestReentrantDispatch(t *testing.T) {
	reg, ns, _ := newTestHost(t)

	var trace []string
	_, _ = reg.RegisterPreHook("sub", func(args []any, name string, _ int) error {
		trace = append(trace, "pre:sub")
		return nil
	})
	_, _ = reg.RegisterPreHook("add", func(args []any, name string, _ int) error {
		trace = append(trace, "pre:add")
		return nil
	})

	// add(a, b) is redefined as sub(a, -b) + original(0, 0), nesting two wrapped calls.
	_ = reg.RegisterReplacement("add", func(args []any) (any, error) {
		diff, err := ns.Call("sub", args[0], -args[1].(int))
		if err != nil {
			return nil, err
		}
		original, _ := reg.OriginalFunction("add")
		zero, err := original([]any{0, 0})
		if err != nil {
			return nil, err
		}
		return diff.(int) + zero.(int), nil
	})

	if got := mustCall(t, ns, "add", 2, 3); got != 5 {
		t.Errorf("add(2, 3) = %v, want 5", got)
	}
	want := []string{"pre:add", "pre:sub"}
	if !reflect.DeepEqual(trace, want) {
		t.Errorf("trace = %v, want %v", trace, want)
	}
}

func TestRecursiveDispatch(t *testing.T) {
	ns := NewNamespace()
	ns.Define("fact", func(args []any) (any, error) {
		n := args[0].(int)
		if n <= 1 {
			return 1, nil
		}
		sub, err := ns.Call("fact", n-1)
		if err != nil {
			return nil, err
		}
		return n * sub.(int), nil
	})
	reg := NewRegistry()
	if err := reg.Install(ns.Targets([]string{"fact"}), ns); err != nil {
		t.Fatal(err)
	}

	depth := 0
	_, _ = reg.RegisterPreHook("fact", func([]any, string, int) error {
		depth++
		return nil
	})

	ret, err := ns.Call("fact", 5)
	if err != nil {
		t.Fatal(err)
	}
	if ret != 120 {
		t.Errorf("fact(5) = %v, want 120", ret)
	}
	if depth != 5 {
		t.Errorf("pre-hook ran %d times, want 5", depth)
	}
}
