package trace

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/dshills/hookline/internal/intercept"
)

func newHost(t *testing.T) (*intercept.Registry, *intercept.Namespace) {
	t.Helper()

	ns := intercept.NewNamespace()
	ns.Define("leaf", func(args []any) (any, error) {
		return args[0].(int) * 2, nil
	})
	ns.Define("branch", func(args []any) (any, error) {
		a, err := ns.Call("leaf", args[0])
		if err != nil {
			return nil, err
		}
		b, err := ns.Call("leaf", args[0].(int)+1)
		if err != nil {
			return nil, err
		}
		return a.(int) + b.(int), nil
	})
	ns.Define("fail", func([]any) (any, error) {
		return nil, errors.New("boom")
	})
	ns.Define("quiet", func([]any) (any, error) { return nil, nil })

	reg := intercept.NewRegistry(intercept.WithLogger(log.New(&bytes.Buffer{})))
	if err := reg.Install(ns.Targets(ns.Names()), ns); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	return reg, ns
}

func TestCallTree(t *testing.T) {
	reg, ns := newHost(t)

	var buf bytes.Buffer
	logger := log.New(&buf)
	logger.SetLevel(log.DebugLevel)

	tr := New(WithLogger(logger))
	if err := tr.Attach(reg, ns.Names()); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	got, err := ns.Call("branch", 1)
	if err != nil {
		t.Fatal(err)
	}
	if got != 6 {
		t.Errorf("branch(1) = %v, want 6", got)
	}

	trees := tr.Trees()
	if len(trees) != 1 {
		t.Fatalf("Trees() len = %d, want 1", len(trees))
	}
	root := trees[0].Root
	if root.Function != "branch" || root.Return != 6 {
		t.Errorf("root = %s -> %v, want branch -> 6", root.Function, root.Return)
	}
	if len(root.Children) != 2 {
		t.Fatalf("root children = %d, want 2", len(root.Children))
	}
	if root.Children[1].Return != 4 {
		t.Errorf("second leaf returned %v, want 4", root.Children[1].Return)
	}
	if trees[0].ID == "" {
		t.Error("tree has no ID")
	}

	want := "branch(1) -> 6\n   leaf(1) -> 2\n   leaf(2) -> 4"
	if r := trees[0].Render(); r != want {
		t.Errorf("Render() = %q, want %q", r, want)
	}
	if !strings.Contains(buf.String(), "call tree") {
		t.Errorf("tree not logged: %q", buf.String())
	}
	if tr.Depth() != 0 {
		t.Errorf("Depth() = %d after call, want 0", tr.Depth())
	}
}

func TestKeepLimit(t *testing.T) {
	reg, ns := newHost(t)
	tr := New(WithKeep(2))
	_ = tr.Attach(reg, []string{"leaf"})

	for i := 0; i < 5; i++ {
		_, _ = ns.Call("leaf", i)
	}

	trees := tr.Trees()
	if len(trees) != 2 {
		t.Fatalf("Trees() len = %d, want 2", len(trees))
	}
	if trees[1].Root.Return != 8 {
		t.Errorf("newest tree returned %v, want 8", trees[1].Root.Return)
	}
}

func TestUnwindAfterError(t *testing.T) {
	reg, ns := newHost(t)
	tr := New()
	_ = tr.Attach(reg, ns.Names())

	if _, err := ns.Call("fail"); err == nil {
		t.Fatal("fail() expected error")
	}
	if tr.Depth() != 1 {
		t.Fatalf("Depth() = %d after failing call, want 1", tr.Depth())
	}

	tr.Unwind()
	if tr.Depth() != 0 {
		t.Errorf("Depth() = %d after Unwind, want 0", tr.Depth())
	}
	trees := tr.Trees()
	if len(trees) != 1 || !trees[0].Root.Incomplete {
		t.Fatalf("Unwind() did not record an incomplete tree: %+v", trees)
	}
	if r := trees[0].Render(); r != "fail() !" {
		t.Errorf("Render() = %q, want %q", r, "fail() !")
	}
}

func TestAbandonedFrameClosedByParent(t *testing.T) {
	reg, ns := newHost(t)
	tr := New()

	// A replacement that swallows a nested error leaves the nested frame open
	// until the outer post-hook arrives.
	_ = reg.RegisterReplacement("branch", func(args []any) (any, error) {
		_, _ = ns.Call("fail")
		return 1, nil
	})
	_ = tr.Attach(reg, []string{"branch", "fail"})

	if _, err := ns.Call("branch", 0); err != nil {
		t.Fatal(err)
	}
	trees := tr.Trees()
	if len(trees) != 1 {
		t.Fatalf("Trees() len = %d, want 1", len(trees))
	}
	child := trees[0].Root.Children[0]
	if !child.Incomplete {
		t.Error("nested failing call not marked incomplete")
	}
	if tr.Depth() != 0 {
		t.Errorf("Depth() = %d, want 0", tr.Depth())
	}
}

func TestRecursiveCallSwallowingError(t *testing.T) {
	ns := intercept.NewNamespace()
	ns.Define("recur", func(args []any) (any, error) {
		n := args[0].(int)
		if n == 0 {
			return nil, errors.New("bottom")
		}
		_, _ = ns.Call("recur", n-1)
		return n, nil
	})
	ns.Define("leaf", func(args []any) (any, error) { return args[0], nil })

	reg := intercept.NewRegistry(intercept.WithLogger(log.New(&bytes.Buffer{})))
	if err := reg.Install(ns.Targets(ns.Names()), ns); err != nil {
		t.Fatalf("Install() error = %v", err)
	}
	tr := New()
	_ = tr.Attach(reg, ns.Names())

	if got, err := ns.Call("recur", 1); err != nil || got != 1 {
		t.Fatalf("recur(1) = %v, %v, want 1, nil", got, err)
	}
	if tr.Depth() != 0 {
		t.Fatalf("Depth() = %d after outer call returned, want 0", tr.Depth())
	}

	_, _ = ns.Call("leaf", 3)

	trees := tr.Trees()
	if len(trees) != 2 {
		t.Fatalf("Trees() len = %d, want 2", len(trees))
	}
	want := "recur(1) -> 1\n   recur(0) !"
	if r := trees[0].Render(); r != want {
		t.Errorf("Render() = %q, want %q", r, want)
	}
	if r := trees[1].Render(); r != "leaf(3) -> 3" {
		t.Errorf("Render() = %q, want %q", r, "leaf(3) -> 3")
	}
}

func TestAttachRequiresInstall(t *testing.T) {
	tr := New()
	if err := tr.Attach(intercept.NewRegistry(), []string{"leaf"}); err == nil {
		t.Error("Attach() on uninstalled registry error = nil, want error")
	}
	if tr.Functions() != 0 {
		t.Errorf("Functions() = %d, want 0", tr.Functions())
	}

	// A refused attach leaves the tracer usable.
	reg, ns := newHost(t)
	if err := tr.Attach(reg, ns.Names()); err != nil {
		t.Errorf("Attach() error = %v", err)
	}
}

func TestDetachAndReset(t *testing.T) {
	reg, ns := newHost(t)
	tr := New()
	_ = tr.Attach(reg, []string{"leaf", "quiet", "missing"})

	if tr.Functions() != 2 {
		t.Errorf("Functions() = %d, want 2", tr.Functions())
	}
	if pre, post := reg.HookCounts("leaf"); pre != 1 || post != 1 {
		t.Errorf("HookCounts(leaf) = %d, %d, want 1, 1", pre, post)
	}
	if err := tr.Attach(reg, nil); err == nil {
		t.Error("second Attach() expected error")
	}

	_, _ = ns.Call("quiet")
	if r := tr.Trees()[0].Render(); r != "quiet()" {
		t.Errorf("Render() = %q, want quiet()", r)
	}

	tr.Reset()
	if len(tr.Trees()) != 0 {
		t.Error("Reset() kept trees")
	}

	tr.Detach()
	if pre, post := reg.HookCounts("leaf"); pre != 0 || post != 0 {
		t.Errorf("HookCounts(leaf) after Detach = %d, %d, want 0, 0", pre, post)
	}
	_, _ = ns.Call("leaf", 1)
	if len(tr.Trees()) != 0 {
		t.Error("detached tracer recorded a call")
	}
}
