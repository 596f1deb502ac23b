// Package trace records call trees for intercepted functions.
//
// A Tracer attaches one pre-hook and one post-hook to each function it
// watches. Calls made while another traced call is running become its
// children; when the outermost call returns the finished tree is logged
// and retained.
package trace

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/dshills/hookline/internal/intercept"
	"github.com/dshills/hookline/internal/logging"
)

// DefaultKeep is the number of finished trees retained by default.
const DefaultKeep = 16

// Node is one call in a tree.
type Node struct {
	Function string
	Args     []any
	Return   any
	Children []*Node

	// Incomplete is set when the call never reached its post-hooks,
	// which happens when the body returns an error.
	Incomplete bool
}

// Tree is a finished outermost call.
type Tree struct {
	ID       string
	Root     *Node
	Started  time.Time
	Duration time.Duration
}

// Render formats the tree one call per line, indented by depth.
func (t *Tree) Render() string {
	var sb strings.Builder
	render(&sb, t.Root, 0)
	return strings.TrimRight(sb.String(), "\n")
}

func render(sb *strings.Builder, n *Node, depth int) {
	sb.WriteString(strings.Repeat("   ", depth))
	sb.WriteString(n.Function)
	sb.WriteByte('(')
	for i, a := range n.Args {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "%v", a)
	}
	sb.WriteByte(')')
	switch {
	case n.Incomplete:
		sb.WriteString(" !")
	case n.Return != nil:
		fmt.Fprintf(sb, " -> %v", n.Return)
	}
	sb.WriteByte('\n')
	for _, c := range n.Children {
		render(sb, c, depth+1)
	}
}

// Option configures a Tracer.
type Option func(*Tracer)

// WithLogger sets the logger trees are written to at debug level.
func WithLogger(l *log.Logger) Option {
	return func(t *Tracer) {
		t.logger = l
	}
}

// WithKeep sets how many finished trees are retained.
func WithKeep(n int) Option {
	return func(t *Tracer) {
		if n > 0 {
			t.keep = n
		}
	}
}

// WithLive logs each call and return as it happens.
func WithLive(live bool) Option {
	return func(t *Tracer) {
		t.live = live
	}
}

// frame is an open call. key identifies the call's argument slice, which
// the registry shares between a call's pre-hooks and post-hooks.
type frame struct {
	node *Node
	key  *any
}

func frameKey(args []any) *any {
	if cap(args) == 0 {
		return nil
	}
	return &args[:1][0]
}

type attachment struct {
	name      string
	pre, post int
}

// Tracer builds call trees from hook callbacks.
type Tracer struct {
	mu sync.Mutex

	stack   []frame
	started time.Time
	trees   []*Tree

	keep   int
	live   bool
	logger *log.Logger

	reg      *intercept.Registry
	attached []attachment
}

// New creates a detached tracer.
func New(opts ...Option) *Tracer {
	t := &Tracer{keep: DefaultKeep}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = logging.Component(t.logger, "trace")
	return t
}

// Attach registers the tracer's hooks on each name in reg. Names the
// registry does not know are skipped. Attach may be called once, and only
// on an installed registry.
func (t *Tracer) Attach(reg *intercept.Registry, names []string) error {
	if !reg.Installed() {
		return fmt.Errorf("trace: registry not installed")
	}

	t.mu.Lock()
	if t.reg != nil {
		t.mu.Unlock()
		return fmt.Errorf("trace: already attached")
	}
	t.reg = reg
	t.mu.Unlock()

	for _, name := range names {
		if !reg.Has(name) {
			continue
		}
		pre, err := reg.RegisterPreHook(name, t.enter)
		if err != nil {
			return fmt.Errorf("trace %s: %w", name, err)
		}
		post, err := reg.RegisterPostHook(name, t.leave)
		if err != nil {
			return fmt.Errorf("trace %s: %w", name, err)
		}

		t.mu.Lock()
		t.attached = append(t.attached, attachment{name: name, pre: pre, post: post})
		t.mu.Unlock()
	}
	return nil
}

// Detach removes every hook added by Attach.
func (t *Tracer) Detach() {
	t.mu.Lock()
	reg := t.reg
	attached := t.attached
	t.reg = nil
	t.attached = nil
	t.mu.Unlock()

	if reg == nil {
		return
	}
	for _, a := range attached {
		_ = reg.DeregisterPreHook(a.name, a.pre)
		_ = reg.DeregisterPostHook(a.name, a.post)
	}
}

// Functions returns the number of functions currently traced.
func (t *Tracer) Functions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.attached)
}

func (t *Tracer) enter(args []any, name string, _ int) error {
	n := &Node{Function: name, Args: append([]any(nil), args...)}

	t.mu.Lock()
	depth := len(t.stack)
	if depth == 0 {
		t.started = time.Now()
	} else {
		parent := t.stack[depth-1].node
		parent.Children = append(parent.Children, n)
	}
	t.stack = append(t.stack, frame{node: n, key: frameKey(args)})
	t.mu.Unlock()

	if t.live {
		t.logger.Debug("call", "function", name, "depth", depth, "args", n.Args)
	}
	return nil
}

func (t *Tracer) leave(args []any, ret any, name string, _ int) error {
	t.mu.Lock()
	top := t.match(frameKey(args), name)
	if top < 0 {
		t.mu.Unlock()
		return nil
	}
	// Frames above the match were abandoned by erroring bodies.
	for i := top + 1; i < len(t.stack); i++ {
		t.stack[i].node.Incomplete = true
	}
	n := t.stack[top].node
	n.Return = ret
	t.stack = t.stack[:top]
	var done *Tree
	if top == 0 {
		done = t.finish(n)
	}
	t.mu.Unlock()

	if t.live && ret != nil {
		t.logger.Debug("return", "function", name, "depth", top, "value", ret)
	}
	if done != nil {
		t.logger.Debug("call tree", "id", done.ID, "duration", done.Duration, "tree", done.Render())
	}
	return nil
}

// match returns the index of the open frame for a returning call, or -1.
// Frames are matched by argument slice and, when the call has none, by name.
func (t *Tracer) match(key *any, name string) int {
	for i := len(t.stack) - 1; i >= 0; i-- {
		f := t.stack[i]
		if key != nil && f.key == key {
			return i
		}
		if key == nil && f.key == nil && f.node.Function == name {
			return i
		}
	}
	return -1
}

// finish must be called with t.mu held.
func (t *Tracer) finish(root *Node) *Tree {
	tree := &Tree{
		ID:       uuid.New().String(),
		Root:     root,
		Started:  t.started,
		Duration: time.Since(t.started),
	}
	t.trees = append(t.trees, tree)
	if len(t.trees) > t.keep {
		t.trees = t.trees[len(t.trees)-t.keep:]
	}
	return tree
}

// Unwind closes every open frame. Callers use it after an entry call
// failed, since an erroring body skips the post-hooks that would have
// closed its frames.
func (t *Tracer) Unwind() {
	t.mu.Lock()
	if len(t.stack) == 0 {
		t.mu.Unlock()
		return
	}
	for _, f := range t.stack {
		f.node.Incomplete = true
	}
	done := t.finish(t.stack[0].node)
	t.stack = nil
	t.mu.Unlock()

	t.logger.Debug("call tree", "id", done.ID, "duration", done.Duration, "tree", done.Render())
}

// Trees returns the retained trees, oldest first.
func (t *Tracer) Trees() []*Tree {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Tree, len(t.trees))
	copy(out, t.trees)
	return out
}

// Depth returns the number of open frames.
func (t *Tracer) Depth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.stack)
}

// Reset drops open frames and retained trees.
func (t *Tracer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stack = nil
	t.trees = nil
}
