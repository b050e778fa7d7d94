package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ordercast/internal/core/contracts"
	"ordercast/internal/core/domain"
	"ordercast/pkg/logging"
)

type IRoomService interface {
	// Join validates a join payload and adds the client to the matching room.
	Join(ctx context.Context, c contracts.Client, who Identity, payload []byte) (domain.Scope, error)
	// Heartbeat refreshes presence for every room the client joined until ctx ends.
	Heartbeat(ctx context.Context, c contracts.Client)
	// Leave clears the client's presence. The registry entry is removed by the caller.
	Leave(ctx context.Context, c contracts.Client)
	Online(ctx context.Context, room string) ([]string, error)
	// Local counts the clients connected to this node that joined room.
	Local(room string) int
}

type RoomOptions struct {
	// RequireAdminToken rejects admin joins from connections whose token does
	// not carry the admin role.
	RequireAdminToken bool
	PresenceTTL       time.Duration
	Heartbeat         time.Duration
}

type RoomService struct {
	log      *slog.Logger
	registry contracts.Registry
	presence contracts.PresenceStore
	opts     RoomOptions
}

// NewRoomService wires room handling. presence may be nil when no presence
// store is configured.
func NewRoomService(log *slog.Logger, registry contracts.Registry, presence contracts.PresenceStore, opts RoomOptions) *RoomService {
	if opts.PresenceTTL <= 0 {
		opts.PresenceTTL = 45 * time.Second
	}
	if opts.Heartbeat <= 0 || opts.Heartbeat >= opts.PresenceTTL {
		opts.Heartbeat = opts.PresenceTTL * 2 / 3
	}
	return &RoomService{
		log:      log.With(slog.String("component", "room_service")),
		registry: registry,
		presence: presence,
		opts:     opts,
	}
}

func (s *RoomService) Join(ctx context.Context, c contracts.Client, who Identity, payload []byte) (domain.Scope, error) {
	ctx, span := tracer.Start(ctx, "RoomService.Join", trace.WithAttributes(
		attribute.String("conn_id", c.ID()),
	))
	defer span.End()

	var p domain.JoinPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		err = fmt.Errorf("%w: malformed join: %w", domain.ErrInvalidScope, err)
		span.RecordError(err)
		s.log.WarnContext(ctx, "rooms - join - malformed payload", logging.ConnID(c.ID()), logging.Err(err))
		return domain.Scope{}, err
	}
	scope, err := domain.NewScope(p.Role, p.TableID)
	if err != nil {
		span.RecordError(err)
		s.log.WarnContext(ctx, "rooms - join - invalid scope", logging.ConnID(c.ID()), logging.Role(string(p.Role)), logging.Err(err))
		return domain.Scope{}, err
	}
	if scope.Role() == domain.RoleAdmin && s.opts.RequireAdminToken && who.Role != domain.RoleAdmin {
		err := fmt.Errorf("%w: admin room requires an admin token", domain.ErrUnauthorized)
		span.RecordError(err)
		span.SetStatus(codes.Error, "forbidden")
		s.log.WarnContext(ctx, "rooms - join - admin denied", logging.ConnID(c.ID()), slog.String("subject", who.Subject))
		return domain.Scope{}, err
	}

	room := scope.Room()
	s.registry.Join(c, room)
	span.SetAttributes(attribute.String("room", room))
	if s.presence != nil {
		if err := s.presence.Touch(ctx, room, c.ID(), s.opts.PresenceTTL); err != nil {
			// Presence is advisory; routing already works.
			s.log.WarnContext(ctx, "rooms - join - presence touch failed", logging.Room(room), logging.Err(err))
		}
	}
	s.log.InfoContext(ctx, "rooms - join - success", logging.ConnID(c.ID()), logging.Room(room))
	return scope, nil
}

func (s *RoomService) Heartbeat(ctx context.Context, c contracts.Client) {
	if s.presence == nil {
		return
	}
	ticker := time.NewTicker(s.opts.Heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, room := range s.registry.Rooms(c) {
				if err := s.presence.Touch(ctx, room, c.ID(), s.opts.PresenceTTL); err != nil && ctx.Err() == nil {
					s.log.WarnContext(ctx, "rooms - heartbeat - touch failed", logging.Room(room), logging.ConnID(c.ID()), logging.Err(err))
				}
			}
		}
	}
}

// Leave must run before the client is unregistered, while its rooms are
// still known.
func (s *RoomService) Leave(ctx context.Context, c contracts.Client) {
	if s.presence == nil {
		return
	}
	for _, room := range s.registry.Rooms(c) {
		if err := s.presence.Leave(ctx, room, c.ID()); err != nil {
			s.log.WarnContext(ctx, "rooms - leave - presence failed", logging.Room(room), logging.ConnID(c.ID()), logging.Err(err))
		}
	}
}

func (s *RoomService) Local(room string) int {
	return s.registry.Members(room)
}

func (s *RoomService) Online(ctx context.Context, room string) ([]string, error) {
	if s.presence == nil {
		return []string{}, nil
	}
	ids, err := s.presence.Online(ctx, room)
	if err != nil {
		s.log.ErrorContext(ctx, "rooms - online - failed", logging.Room(room), logging.Err(err))
		return nil, err
	}
	return ids, nil
}
