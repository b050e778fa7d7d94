package worker

import (
	"context"
	"log/slog"
	"time"

	"ordercast/internal/core/contracts"
	"ordercast/pkg/logging"
)

// RelayWorker delivers frames published on the event bus, by this node or
// any other, to the clients connected to this node.
type RelayWorker struct {
	log        *slog.Logger
	bus        contracts.EventBus
	hub        contracts.Registry
	retryDelay time.Duration
}

func NewRelayWorker(log *slog.Logger, bus contracts.EventBus, hub contracts.Registry) *RelayWorker {
	return &RelayWorker{
		log:        log.With(slog.String("component", "relay_worker")),
		bus:        bus,
		hub:        hub,
		retryDelay: time.Second,
	}
}

// Run subscribes to the bus until ctx is cancelled, resubscribing after a
// broken subscription.
func (w *RelayWorker) Run(ctx context.Context) error {
	for {
		w.log.InfoContext(ctx, "worker - run - subscribing to bus")
		err := w.bus.Subscribe(ctx, func(room string, frame []byte) {
			w.ProcessFrame(ctx, room, frame)
		})
		if ctx.Err() != nil {
			return nil
		}
		w.log.ErrorContext(ctx, "worker - run - subscription ended", logging.Err(err), slog.Duration("retry_in", w.retryDelay))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.retryDelay):
		}
	}
}

func (w *RelayWorker) ProcessFrame(ctx context.Context, room string, frame []byte) {
	n := w.hub.Broadcast(ctx, room, frame)
	w.log.DebugContext(ctx, "worker - process frame - delivered", logging.Room(room), slog.Int("clients", n))
}
