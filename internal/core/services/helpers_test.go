package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"ordercast/internal/core/contracts"
	"ordercast/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type published struct {
	room  string
	frame []byte
}

type fakeBus struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (b *fakeBus) Publish(_ context.Context, room string, frame []byte) error {
	if b.err != nil {
		return b.err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, published{room, frame})
	return nil
}

func (b *fakeBus) Subscribe(ctx context.Context, _ func(string, []byte)) error {
	<-ctx.Done()
	return ctx.Err()
}

type fakeRepo struct {
	saved   []domain.Notification
	seen    map[string]bool
	err     error
	lastLim int
}

func (r *fakeRepo) SaveNotification(_ context.Context, n *domain.Notification) error {
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, *n)
	return nil
}

func (r *fakeRepo) ListNotifications(_ context.Context, limit int) ([]domain.Notification, error) {
	r.lastLim = limit
	out := slices.Clone(r.saved)
	slices.Reverse(out)
	return out[:min(limit, len(out))], nil
}

func (r *fakeRepo) MarkSeen(_ context.Context, id string) error {
	for i := range r.saved {
		if r.saved[i].ID == id {
			r.saved[i].IsSeen = true
			return nil
		}
	}
	return domain.ErrNotificationNotFound
}

type fakeTx struct {
	calls int
}

func (t *fakeTx) WithTx(ctx context.Context, fn func(context.Context) error) error {
	t.calls++
	return fn(ctx)
}

type stubClient struct{ id string }

func (c *stubClient) ID() string                         { return c.id }
func (c *stubClient) Send(context.Context, []byte) error { return nil }
func (c *stubClient) Close()                             {}

type fakeRegistry struct {
	mu    sync.Mutex
	rooms map[string][]string
}

func (r *fakeRegistry) Register(contracts.Client)   {}
func (r *fakeRegistry) Unregister(contracts.Client) {}

func (r *fakeRegistry) Join(c contracts.Client, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rooms == nil {
		r.rooms = map[string][]string{}
	}
	if !slices.Contains(r.rooms[c.ID()], room) {
		r.rooms[c.ID()] = append(r.rooms[c.ID()], room)
	}
}

func (r *fakeRegistry) Rooms(c contracts.Client) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.rooms[c.ID()])
}

func (r *fakeRegistry) Members(room string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, joined := range r.rooms {
		if slices.Contains(joined, room) {
			n++
		}
	}
	return n
}

func (r *fakeRegistry) Broadcast(context.Context, string, []byte) int { return 0 }

type touch struct {
	room, conn string
	ttl        time.Duration
}

type fakePresence struct {
	mu      sync.Mutex
	touches []touch
	left    []string
	err     error
}

func (p *fakePresence) Touch(_ context.Context, room, connID string, ttl time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.touches = append(p.touches, touch{room, connID, ttl})
	return p.err
}

func (p *fakePresence) Online(_ context.Context, room string) ([]string, error) {
	if p.err != nil {
		return nil, p.err
	}
	return []string{room + "-conn"}, nil
}

func (p *fakePresence) Leave(_ context.Context, room, connID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.left = append(p.left, room+"/"+connID)
	return nil
}

func (p *fakePresence) touchCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.touches)
}

var errBoom = errors.New("boom")
