package memory

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"ordercast/pkg/logging"
)

type envelope struct {
	room  string
	frame []byte
}

// EventBus is a single-node event bus. Each subscriber gets its own buffered
// channel; a subscriber that falls behind drops frames rather than stalling
// publishers. Every drop is logged and counted.
type EventBus struct {
	log     *slog.Logger
	mu      sync.Mutex
	subs    map[chan envelope]struct{}
	buffer  int
	dropped atomic.Uint64
}

func NewEventBus(log *slog.Logger, buffer int) *EventBus {
	if log == nil {
		log = slog.Default()
	}
	if buffer <= 0 {
		buffer = 256
	}
	return &EventBus{
		log:    log.With(slog.String("component", "memory_bus")),
		subs:   make(map[chan envelope]struct{}),
		buffer: buffer,
	}
}

func (b *EventBus) Publish(ctx context.Context, room string, frame []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- envelope{room: room, frame: frame}:
		default:
			n := b.dropped.Add(1)
			b.log.WarnContext(ctx, "memory bus - publish - subscriber lagging, frame dropped", logging.Room(room), slog.Uint64("dropped_total", n))
		}
	}
	return nil
}

func (b *EventBus) Subscribe(ctx context.Context, fn func(room string, frame []byte)) error {
	ch := make(chan envelope, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.subs, ch)
		b.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-ch:
			fn(e.room, e.frame)
		}
	}
}

// Dropped reports how many deliveries were skipped because a subscriber's
// buffer was full.
func (b *EventBus) Dropped() uint64 { return b.dropped.Load() }

// Subscribers reports how many subscriptions are live.
func (b *EventBus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
