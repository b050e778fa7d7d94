package channel

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"ordercast/internal/core/domain"
	"ordercast/pkg/logging"
)

type AnnouncementState int

const (
	Pending AnnouncementState = iota
	Sent
)

// Announcement is one caller's request for room membership. It is re-sent
// on every new connection epoch until withdrawn.
type Announcement struct {
	scope     domain.Scope
	sentEpoch uint64
}

// Membership announces room membership for every active caller, once per
// connection epoch. Servers keep no membership across a dropped connection,
// so each new epoch starts with every announcement pending.
type Membership struct {
	log *slog.Logger
	mgr *Manager

	mu        sync.Mutex
	entries   []*Announcement
	epoch     uint64 // live epoch, 0 while disconnected
	lastEpoch uint64 // newest epoch ever connected, never reset
}

func NewMembership(log *slog.Logger, mgr *Manager) *Membership {
	if log == nil {
		log = slog.Default()
	}
	m := &Membership{
		log: log.With(slog.String("component", "channel_membership")),
		mgr: mgr,
	}
	mgr.OnStateChange(m.onStateChange)
	return m
}

// Announce records scope and sends its join frame now if connected, or as
// soon as the connection comes up otherwise.
func (m *Membership) Announce(scope domain.Scope) *Announcement {
	a := &Announcement{scope: scope}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, a)
	if m.epoch != 0 {
		m.send(a, m.epoch)
	}
	return a
}

// Withdraw stops re-announcing a. Withdrawing twice is a no-op.
func (m *Membership) Withdraw(a *Announcement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = slices.DeleteFunc(m.entries, func(cur *Announcement) bool { return cur == a })
}

// Rescope replaces the authoritative scope of a. The new scope is announced
// on the next connection epoch.
func (m *Membership) Rescope(a *Announcement, scope domain.Scope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.scope = scope
	a.sentEpoch = 0
}

func (m *Membership) Scope(a *Announcement) domain.Scope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return a.scope
}

func (m *Membership) State(a *Announcement) AnnouncementState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.epoch != 0 && a.sentEpoch == m.epoch {
		return Sent
	}
	return Pending
}

// Active returns the number of callers currently announced.
func (m *Membership) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Membership) onStateChange(c StateChange) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch c.State {
	case Connected:
		if c.Epoch <= m.lastEpoch {
			// late news from a connection that was already replaced
			m.log.Debug("membership - connected - stale epoch ignored", slog.Uint64("epoch", c.Epoch), slog.Uint64("live", m.lastEpoch))
			return
		}
		m.lastEpoch = c.Epoch
		m.epoch = c.Epoch
		for _, a := range m.entries {
			if a.sentEpoch != c.Epoch {
				m.send(a, c.Epoch)
			}
		}
	case Disconnected:
		if c.Epoch == m.epoch {
			m.epoch = 0
		}
	}
}

// send must be called with mu held.
func (m *Membership) send(a *Announcement, epoch uint64) {
	frame, err := domain.NewFrame(domain.EventJoin, a.scope.JoinPayload())
	if err != nil {
		m.log.Error("membership - announce - encode failed", slog.String("scope", a.scope.String()), logging.Err(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.mgr.sendEpoch(ctx, epoch, frame); err != nil {
		m.log.Warn("membership - announce - send failed, left pending", slog.String("scope", a.scope.String()), logging.Err(err))
		return
	}
	a.sentEpoch = epoch
	m.log.Debug("membership - announce - join sent", slog.String("scope", a.scope.String()), slog.Uint64("epoch", epoch))
}
