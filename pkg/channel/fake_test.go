package channel

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

var errDropped = errors.New("connection dropped")

// fakeTransport hands out in-memory connections and records every frame
// written to any of them.
type fakeTransport struct {
	mu      sync.Mutex
	conns   []*fakeConn
	dials   int
	failing bool
}

func (t *fakeTransport) Dial(_ context.Context) (Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dials++
	if t.failing {
		return nil, errors.New("connection refused")
	}
	c := &fakeConn{in: make(chan Message, 64), closed: make(chan struct{})}
	t.conns = append(t.conns, c)
	return c, nil
}

func (t *fakeTransport) setFailing(v bool) {
	t.mu.Lock()
	t.failing = v
	t.mu.Unlock()
}

func (t *fakeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

func (t *fakeTransport) connCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

func (t *fakeTransport) conn(i int) *fakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conns[i]
}

func (t *fakeTransport) last() *fakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conns[len(t.conns)-1]
}

type fakeConn struct {
	in     chan Message
	closed chan struct{}
	once   sync.Once

	mu     sync.Mutex
	sent   [][]byte
	closes int
}

func (c *fakeConn) Send(_ context.Context, frame []byte) error {
	select {
	case <-c.closed:
		return io.ErrClosedPipe
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, frame)
	return nil
}

func (c *fakeConn) Receive() (Message, error) {
	select {
	case <-c.closed:
		return Message{}, errDropped
	default:
	}
	select {
	case <-c.closed:
		return Message{}, errDropped
	case m := <-c.in:
		return m, nil
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() {
		c.mu.Lock()
		c.closes++
		c.mu.Unlock()
		close(c.closed)
	})
	return nil
}

// drop simulates the server or network ending the connection.
func (c *fakeConn) drop() { _ = c.Close() }

func (c *fakeConn) emit(event string, data []byte) {
	c.in <- Message{Event: event, Data: data}
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// joins returns the data of every join frame written to the connection.
func (c *fakeConn) joins() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, f := range c.sent {
		if gjson.GetBytes(f, "event").Str == "join" {
			out = append(out, gjson.GetBytes(f, "data").Raw)
		}
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastOptions() Options {
	return Options{
		DialTimeout:       time.Second,
		ReconnectDelay:    5 * time.Millisecond,
		MaxReconnectDelay: 20 * time.Millisecond,
	}
}

func newTestChannel(t *testing.T) (*Channel, *fakeTransport) {
	t.Helper()
	tr := &fakeTransport{}
	ch, err := New(testLogger(), tr, fastOptions())
	require.NoError(t, err)
	return ch, tr
}

func waitConnected(t *testing.T, m *Manager) {
	t.Helper()
	require.Eventually(t, func() bool { return m.State() == Connected }, 2*time.Second, time.Millisecond)
}

// recorder collects handler invocations.
type recorder struct {
	mu    sync.Mutex
	calls [][]byte
}

func (r *recorder) handle(payload []byte) {
	r.mu.Lock()
	r.calls = append(r.calls, payload)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func (r *recorder) at(i int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[i]
}
