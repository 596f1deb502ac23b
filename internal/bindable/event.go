// Package bindable implements named events that mods fire and listen to.
//
// Fire walks a snapshot of the listeners bound when it started. A listener
// may remove itself through the Firing it receives; such removals are applied
// once every listener in the pass has run.
package bindable

import (
	"errors"
	"fmt"
	"sync"
)

// ErrNotBound is returned when deregistering a listener that is not bound.
var ErrNotBound = errors.New("listener not bound to event")

// ErrNilListener is returned when registering a nil listener.
var ErrNilListener = errors.New("nil listener")

// Listener handles one firing of an event.
type Listener func(f *Firing, args ...any) error

// Event is a named list of listeners.
type Event struct {
	name string

	mu        sync.Mutex
	listeners []*Connection
}

// Connection is the handle returned by RegisterListener.
type Connection struct {
	event    *Event
	listener Listener
}

// Firing is passed to each listener during Fire.
type Firing struct {
	// Event is the event being fired.
	Event *Event

	conn    *Connection
	pending *[]*Connection
}

// New creates an event with no listeners.
func New(name string) *Event {
	return &Event{name: name}
}

// Name returns the event name.
func (e *Event) Name() string {
	return e.name
}

// Len returns the number of bound listeners.
func (e *Event) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners)
}

// RegisterListener binds fn and returns its connection.
func (e *Event) RegisterListener(fn Listener) (*Connection, error) {
	if fn == nil {
		return nil, fmt.Errorf("%w: event %s", ErrNilListener, e.name)
	}
	c := &Connection{event: e, listener: fn}

	e.mu.Lock()
	e.listeners = append(e.listeners, c)
	e.mu.Unlock()
	return c, nil
}

// DeregisterListener unbinds the listener behind conn.
func (e *Event) DeregisterListener(conn *Connection) error {
	if conn == nil || !e.remove(conn) {
		return fmt.Errorf("%w: %s", ErrNotBound, e.name)
	}
	return nil
}

// Deregister unbinds the connection's listener. It is a no-op when the
// listener was already removed.
func (c *Connection) Deregister() {
	c.event.remove(c)
}

// Bound reports whether the connection is still bound.
func (c *Connection) Bound() bool {
	c.event.mu.Lock()
	defer c.event.mu.Unlock()
	return c.event.indexOf(c) >= 0
}

// Deregister schedules the current listener for removal after the firing pass.
func (f *Firing) Deregister() {
	*f.pending = append(*f.pending, f.conn)
}

// Fire calls every bound listener with args. Listener errors and panics do
// not stop the pass; they are joined and returned after it completes.
func (e *Event) Fire(args ...any) error {
	e.mu.Lock()
	snapshot := make([]*Connection, len(e.listeners))
	copy(snapshot, e.listeners)
	e.mu.Unlock()

	var (
		errs    []error
		pending []*Connection
	)
	for _, c := range snapshot {
		f := &Firing{Event: e, conn: c, pending: &pending}
		if err := e.call(c, f, args); err != nil {
			errs = append(errs, err)
		}
	}

	for _, c := range pending {
		e.remove(c)
	}
	return errors.Join(errs...)
}

func (e *Event) call(c *Connection, f *Firing, args []any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("event %s: listener panic: %v", e.name, r)
		}
	}()
	if err := c.listener(f, args...); err != nil {
		return fmt.Errorf("event %s: %w", e.name, err)
	}
	return nil
}

func (e *Event) remove(c *Connection) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.indexOf(c)
	if i < 0 {
		return false
	}
	e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
	return true
}

// indexOf must be called with e.mu held.
func (e *Event) indexOf(c *Connection) int {
	for i, l := range e.listeners {
		if l == c {
			return i
		}
	}
	return -1
}
