package registry

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"ordercast/internal/core/contracts"
	"ordercast/pkg/logging"
)

// DefaultSendTimeout bounds a single client send during a broadcast.
const DefaultSendTimeout = 2 * time.Second

type Registry struct {
	log         *slog.Logger
	sendTimeout time.Duration
	mu       sync.RWMutex
	clients  map[string]contracts.Client            // conn_id → client
	room_hub map[string]map[string]contracts.Client // room → conn_id → client
	joined   map[string][]string                    // conn_id → rooms
}

func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		log:         log.With(slog.String("component", "registry")),
		sendTimeout: DefaultSendTimeout,
		clients:  make(map[string]contracts.Client),
		room_hub: make(map[string]map[string]contracts.Client),
		joined:   make(map[string][]string),
	}
}

func (h *Registry) Register(c contracts.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID()] = c
}

func (h *Registry) Unregister(c contracts.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := c.ID()
	for _, room := range h.joined[id] {
		delete(h.room_hub[room], id)
		if len(h.room_hub[room]) == 0 {
			delete(h.room_hub, room)
		}
	}
	delete(h.joined, id)
	delete(h.clients, id)
}

func (h *Registry) Join(c contracts.Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := c.ID()
	if _, ok := h.clients[id]; !ok {
		// joins from a connection that already went away are dropped
		return
	}
	if slices.Contains(h.joined[id], room) {
		return
	}
	if h.room_hub[room] == nil {
		h.room_hub[room] = make(map[string]contracts.Client)
	}
	h.room_hub[room][id] = c
	h.joined[id] = append(h.joined[id], room)
}

func (h *Registry) Rooms(c contracts.Client) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.joined[c.ID()])
}

// Members returns the number of local clients in room.
func (h *Registry) Members(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.room_hub[room])
}

// Broadcast hands frame to every local client in room. A client that fails
// to take it within the send timeout is closed and skipped.
func (h *Registry) Broadcast(ctx context.Context, room string, frame []byte) int {
	h.mu.RLock()
	targets := make([]contracts.Client, 0, len(h.room_hub[room]))
	for _, c := range h.room_hub[room] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if err := h.send(ctx, c, frame); err != nil {
			h.log.WarnContext(ctx, "registry - broadcast - client dropped", logging.Room(room), logging.ConnID(c.ID()), logging.Err(err))
			c.Close()
			continue
		}
		sent++
	}
	return sent
}

func (h *Registry) send(ctx context.Context, c contracts.Client, frame []byte) error {
	ctx, cancel := context.WithTimeout(ctx, h.sendTimeout)
	defer cancel()
	return c.Send(ctx, frame)
}
