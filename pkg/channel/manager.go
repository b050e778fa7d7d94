package channel

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"ordercast/internal/core/domain"
	"ordercast/pkg/logging"
)

type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// StateChange is delivered to observers on every transition to Connected or
// Disconnected. Epoch identifies the connection the change refers to.
type StateChange struct {
	State       State
	Epoch       uint64
	Err         error
	Intentional bool
}

// Options tune connection establishment. Zero values take defaults.
type Options struct {
	DialTimeout       time.Duration
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.DialTimeout <= 0 {
		o.DialTimeout = 10 * time.Second
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = 500 * time.Millisecond
	}
	if o.MaxReconnectDelay < o.ReconnectDelay {
		o.MaxReconnectDelay = 30 * time.Second
		if o.MaxReconnectDelay < o.ReconnectDelay {
			o.MaxReconnectDelay = o.ReconnectDelay
		}
	}
	return o
}

type observer struct {
	fn func(StateChange)
}

// session is the lifetime of one run goroutine, from the first Acquire to
// the Release that brings the count back to zero.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
	forced atomic.Bool
}

// Manager owns the one shared connection to the real-time server. The
// connection exists while at least one caller holds a reference.
type Manager struct {
	log       *slog.Logger
	transport Transport
	opts      Options
	onMessage func(Message)

	mu        sync.Mutex
	refs      int
	state     State
	conn      Conn
	epoch     uint64
	session   *session
	observers []*observer
}

func NewManager(log *slog.Logger, transport Transport, opts Options) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		log:       log.With(slog.String("component", "channel_manager")),
		transport: transport,
		opts:      opts.withDefaults(),
	}
}

// OnStateChange registers fn for every connection transition. Observers run
// synchronously on the connection goroutine before inbound dispatch resumes,
// except for the intentional teardown, which runs on the releasing caller.
func (m *Manager) OnStateChange(fn func(StateChange)) (remove func()) {
	o := &observer{fn: fn}
	m.mu.Lock()
	m.observers = append(m.observers, o)
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, cur := range m.observers {
			if cur == o {
				m.observers = append(m.observers[:i:i], m.observers[i+1:]...)
				return
			}
		}
	}
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Refs() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refs
}

// Acquire takes a reference on the shared connection and starts establishing
// it if no attempt is running. Connection failures are reported to observers,
// never returned here.
func (m *Manager) Acquire() error {
	if m.transport == nil {
		return fmt.Errorf("%w: no transport", domain.ErrInvalidConfig)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refs++
	if m.session != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{ctx: ctx, cancel: cancel}
	m.session = s
	m.state = Connecting
	go m.run(s)
	m.log.Debug("channel - acquire - connection requested", slog.Int("refs", m.refs))
	return nil
}

// Release drops a reference. The last release closes the connection.
// Releasing more than was acquired returns ErrDoubleRelease.
func (m *Manager) Release() error {
	m.mu.Lock()
	if m.refs == 0 {
		m.mu.Unlock()
		m.log.Error("channel - release - released more than acquired")
		return domain.ErrDoubleRelease
	}
	m.refs--
	if m.refs > 0 {
		m.mu.Unlock()
		return nil
	}
	s, conn, epoch := m.session, m.conn, m.epoch
	wasConnected := m.state == Connected
	m.session, m.conn, m.state = nil, nil, Disconnected
	m.mu.Unlock()

	s.cancel()
	if conn != nil {
		_ = conn.Close()
	}
	m.log.Info("channel - release - connection closed", slog.Uint64("epoch", epoch))
	if wasConnected {
		m.notify(StateChange{State: Disconnected, Epoch: epoch, Intentional: true})
	}
	return nil
}

// Reconnect drops the live connection and dials a fresh one immediately.
// Servers forget room membership with the old connection.
func (m *Manager) Reconnect() {
	m.mu.Lock()
	s, conn := m.session, m.conn
	m.mu.Unlock()
	if s == nil || conn == nil {
		return
	}
	s.forced.Store(true)
	_ = conn.Close()
}

// Send writes a frame on the current connection.
func (m *Manager) Send(ctx context.Context, frame []byte) error {
	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()
	return m.sendEpoch(ctx, epoch, frame)
}

// sendEpoch writes only if the connection of the given epoch is still live.
func (m *Manager) sendEpoch(ctx context.Context, epoch uint64, frame []byte) error {
	m.mu.Lock()
	conn, cur := m.conn, m.epoch
	m.mu.Unlock()
	if conn == nil || cur != epoch {
		return domain.ErrNotConnected
	}
	return conn.Send(ctx, frame)
}

func (m *Manager) run(s *session) {
	delay := m.opts.ReconnectDelay
	for s.ctx.Err() == nil {
		m.setConnecting(s)
		dialCtx, cancel := context.WithTimeout(s.ctx, m.opts.DialTimeout)
		conn, err := m.transport.Dial(dialCtx)
		cancel()
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			m.log.Warn("channel - dial - failed", logging.Err(err), slog.Duration("retry_in", delay))
			m.notifyCurrent(s, StateChange{State: Disconnected, Err: fmt.Errorf("%w: %w", domain.ErrConnection, err)})
			if !sleep(s.ctx, delay) {
				return
			}
			delay = min(delay*2, m.opts.MaxReconnectDelay)
			continue
		}

		epoch, ok := m.attach(s, conn)
		if !ok {
			_ = conn.Close()
			return
		}
		delay = m.opts.ReconnectDelay
		m.log.Info("channel - connect - connected", slog.Uint64("epoch", epoch))
		m.notifyCurrent(s, StateChange{State: Connected, Epoch: epoch})

		err = m.readLoop(s, conn)
		_ = conn.Close()
		if !m.detach(conn) || s.ctx.Err() != nil {
			return
		}
		forced := s.forced.Swap(false)
		if forced {
			m.log.Info("channel - reconnect - cycling connection", slog.Uint64("epoch", epoch))
			m.notify(StateChange{State: Disconnected, Epoch: epoch, Intentional: true})
			continue
		}
		m.log.Warn("channel - read - connection dropped", slog.Uint64("epoch", epoch), logging.Err(err))
		m.notify(StateChange{State: Disconnected, Epoch: epoch, Err: fmt.Errorf("%w: %w", domain.ErrConnection, err)})
		if !sleep(s.ctx, delay) {
			return
		}
	}
}

func (m *Manager) setConnecting(s *session) {
	m.mu.Lock()
	if m.session == s {
		m.state = Connecting
	}
	m.mu.Unlock()
}

func (m *Manager) attach(s *session, conn Conn) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != s || s.ctx.Err() != nil {
		return 0, false
	}
	m.epoch++
	m.conn = conn
	m.state = Connected
	return m.epoch, true
}

// detach reports whether conn was still the live connection.
func (m *Manager) detach(conn Conn) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != conn {
		return false
	}
	m.conn = nil
	m.state = Disconnected
	return true
}

func (m *Manager) readLoop(s *session, conn Conn) error {
	for {
		msg, err := conn.Receive()
		if err != nil {
			return err
		}
		if s.ctx.Err() != nil {
			return s.ctx.Err()
		}
		if m.onMessage != nil {
			m.onMessage(msg)
		}
	}
}

func (m *Manager) notify(change StateChange) {
	m.mu.Lock()
	obs := slices.Clone(m.observers)
	m.mu.Unlock()
	for _, o := range obs {
		o.fn(change)
	}
}

// notifyCurrent drops changes from a session that has since been released.
// A release racing with this call can still let one through, so observers
// must also ignore epochs older than the newest they have seen.
func (m *Manager) notifyCurrent(s *session, change StateChange) {
	m.mu.Lock()
	if m.session != s {
		m.mu.Unlock()
		return
	}
	obs := slices.Clone(m.observers)
	m.mu.Unlock()
	for _, o := range obs {
		o.fn(change)
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
