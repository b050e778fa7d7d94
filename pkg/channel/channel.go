// Package channel is the client side of the real-time order feed: one shared
// connection, reference counted by its callers, that announces each caller's
// room membership and fans inbound events out to their handlers.
package channel

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"ordercast/internal/core/domain"
)

type Channel struct {
	log   *slog.Logger
	mgr   *Manager
	rooms *Membership
	mux   *Mux
}

func New(log *slog.Logger, transport Transport, opts Options) (*Channel, error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: no transport", domain.ErrInvalidConfig)
	}
	if log == nil {
		log = slog.Default()
	}
	mux := NewMux()
	mgr := NewManager(log, transport, opts)
	mgr.onMessage = func(msg Message) {
		mux.Dispatch(msg.Event, msg.Data)
	}
	return &Channel{
		log:   log,
		mgr:   mgr,
		rooms: NewMembership(log, mgr),
		mux:   mux,
	}, nil
}

func (c *Channel) Manager() *Manager       { return c.mgr }
func (c *Channel) Membership() *Membership { return c.rooms }
func (c *Channel) Mux() *Mux               { return c.mux }

// Use activates a caller: it takes a connection reference, announces scope
// on this and every later connection epoch, and attaches fn to event. The
// returned Activation must be closed when the caller goes away.
func (c *Channel) Use(scope domain.Scope, event string, fn Handler) (*Activation, error) {
	if !scope.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidScope, scope.String())
	}
	if event == "" || fn == nil {
		return nil, fmt.Errorf("%w: event and handler are required", domain.ErrInvalidConfig)
	}
	if err := c.mgr.Acquire(); err != nil {
		return nil, err
	}
	a := &Activation{
		ch:  c,
		ann: c.rooms.Announce(scope),
		reg: c.mux.Subscribe(event, fn),
	}
	c.log.Debug("channel - use - activated", slog.String("scope", scope.String()), slog.String("event", event))
	return a, nil
}

// SubscribeAdminOrders delivers every order:new notification to onNewOrder.
func (c *Channel) SubscribeAdminOrders(onNewOrder Handler) (*Activation, error) {
	return c.Use(domain.AdminScope(), domain.EventOrderNew, onNewOrder)
}

// SubscribeOrderStatus delivers order:update events for one table to onUpdate.
func (c *Channel) SubscribeOrderStatus(tableID string, onUpdate Handler) (*Activation, error) {
	scope, err := domain.CustomerScope(tableID)
	if err != nil {
		return nil, err
	}
	return c.Use(scope, domain.EventOrderUpdate, onUpdate)
}

// Activation is one caller's live subscription.
type Activation struct {
	ch *Channel

	mu     sync.Mutex
	ann    *Announcement
	reg    *Registration
	closed bool
}

// Close detaches the handler, withdraws the announcement and releases the
// connection reference. Only the first call has any effect.
func (a *Activation) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	reg, ann := a.reg, a.ann
	a.mu.Unlock()

	a.ch.mux.Unsubscribe(reg)
	a.ch.rooms.Withdraw(ann)
	return a.ch.mgr.Release()
}

// Rebind points the activation at a new handler and scope. The previous
// handler is detached before the new one is attached. A changed scope cycles
// the connection so that the server drops the old room membership.
func (a *Activation) Rebind(scope domain.Scope, fn Handler) error {
	if !scope.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidScope, scope.String())
	}
	if fn == nil {
		return fmt.Errorf("%w: handler is required", domain.ErrInvalidConfig)
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return fmt.Errorf("%w: activation closed", domain.ErrInvalidConfig)
	}
	old := a.reg
	a.ch.mux.Unsubscribe(old)
	a.reg = a.ch.mux.Subscribe(old.Event(), fn)
	changed := a.ch.rooms.Scope(a.ann) != scope
	if changed {
		a.ch.rooms.Rescope(a.ann, scope)
	}
	a.mu.Unlock()

	if changed {
		a.ch.log.Info("channel - rebind - scope changed, cycling connection", slog.String("scope", scope.String()))
		a.ch.mgr.Reconnect()
	}
	return nil
}

func (a *Activation) Scope() domain.Scope {
	return a.ch.rooms.Scope(a.ann)
}

// DecodeNotification parses an order:new payload.
func DecodeNotification(payload []byte) (domain.Notification, error) {
	var n domain.Notification
	if err := json.Unmarshal(payload, &n); err != nil {
		return domain.Notification{}, fmt.Errorf("%w: %w", domain.ErrInvalidNotification, err)
	}
	return n, nil
}
