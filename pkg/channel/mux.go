package channel

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Handler receives the raw data bytes of an inbound frame. The bytes are
// shared between handlers of the same frame and must not be modified.
type Handler func(payload []byte)

// Registration is one caller's handler for one event. Its identity, not the
// handler func, is what Unsubscribe removes.
type Registration struct {
	event    string
	fn       Handler
	detached atomic.Bool
}

func (r *Registration) Event() string { return r.event }
func (r *Registration) Active() bool  { return !r.detached.Load() }

// Mux fans inbound frames out to handlers keyed by event name.
type Mux struct {
	mu       sync.RWMutex
	handlers map[string][]*Registration
}

func NewMux() *Mux {
	return &Mux{handlers: make(map[string][]*Registration)}
}

// Subscribe attaches fn to event after any handlers already attached.
func (x *Mux) Subscribe(event string, fn Handler) *Registration {
	r := &Registration{event: event, fn: fn}
	x.mu.Lock()
	defer x.mu.Unlock()
	cur := x.handlers[event]
	x.handlers[event] = append(cur[:len(cur):len(cur)], r)
	return r
}

// Unsubscribe detaches r. Called from inside a handler, no later invocation
// of r happens, including for frames already read. Called from another
// goroutine, only an invocation already in progress may still complete.
// Detaching a registration twice, or one never attached, is a no-op.
func (x *Mux) Unsubscribe(r *Registration) {
	if r == nil || !r.detached.CompareAndSwap(false, true) {
		return
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	list := slices.DeleteFunc(slices.Clone(x.handlers[r.event]), func(cur *Registration) bool { return cur == r })
	if len(list) == 0 {
		delete(x.handlers, r.event)
		return
	}
	x.handlers[r.event] = list
}

// Dispatch invokes the handlers attached to event in attachment order and
// returns how many ran.
func (x *Mux) Dispatch(event string, payload []byte) int {
	x.mu.RLock()
	regs := x.handlers[event]
	x.mu.RUnlock()

	n := 0
	for _, r := range regs {
		// a handler earlier in this loop may have detached r
		if r.detached.Load() {
			continue
		}
		r.fn(payload)
		n++
	}
	return n
}

// Len returns the number of handlers attached to event.
func (x *Mux) Len(event string) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.handlers[event])
}
