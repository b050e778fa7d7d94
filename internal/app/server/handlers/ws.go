package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ordercast/internal/app/server/ws"
	"ordercast/internal/core/contracts"
	"ordercast/internal/core/domain"
	"ordercast/internal/core/services"
	"ordercast/pkg/logging"
	"ordercast/pkg/middleware"
)

type WSHandler struct {
	hub      contracts.Registry
	rooms    services.IRoomService
	upgrader websocket.Upgrader
}

func NewWSHandler(hub contracts.Registry, rooms services.IRoomService) *WSHandler {
	return &WSHandler{
		hub:   hub,
		rooms: rooms,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // tablets and the admin panel are served from other origins
			},
		},
	}
}

func (s *WSHandler) Handler(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())
	span := trace.SpanFromContext(r.Context())
	who, _ := middleware.IdentityFrom(r.Context())

	// Server shutdown cancels the base context and ends every session.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.ErrorContext(r.Context(), "ws handler - upgrade - ws upgrade failed", logging.Err(err))
		return
	}
	connID := uuid.NewString()
	ctx, log = logging.With(ctx, logging.ConnID(connID))
	span.SetAttributes(attribute.String("ws.conn_id", connID), attribute.String("ws.subject", who.Subject))

	socket := ws.NewWebSocket(ctx, log, conn)
	client := ws.NewClient(ctx, socket, connID)
	s.hub.Register(client)
	go func() {
		<-ctx.Done()
		client.Close()
	}()
	defer func() {
		s.rooms.Leave(context.WithoutCancel(ctx), client)
		s.hub.Unregister(client)
		client.Close()
		log.InfoContext(ctx, "ws handler - disconnect - client removed")
	}()
	log.InfoContext(ctx, "ws handler - connect - client registered", slog.String("subject", who.Subject))

	go s.rooms.Heartbeat(ctx, client)

	// Frames are handled inline so joins apply in the order they were sent.
	socket.ReadLoop(func(data []byte) {
		s.handleFrame(ctx, log, client, who, data)
	})
}

func (s *WSHandler) handleFrame(ctx context.Context, log *slog.Logger, client *ws.RuntimeClient, who services.Identity, data []byte) {
	if !gjson.ValidBytes(data) {
		log.DebugContext(ctx, "ws handler - frame - invalid json dropped")
		return
	}
	env := gjson.GetManyBytes(data, "event", "data")
	switch event := env[0].String(); event {
	case domain.EventJoin:
		if _, err := s.rooms.Join(ctx, client, who, []byte(env[1].Raw)); err != nil {
			s.reject(ctx, client, err)
		}
	default:
		log.DebugContext(ctx, "ws handler - frame - unknown event ignored", logging.Event(event))
	}
}

// reject tells the client why a frame was refused. The connection stays open.
func (s *WSHandler) reject(ctx context.Context, client *ws.RuntimeClient, err error) {
	code := "invalid_join"
	if errors.Is(err, domain.ErrUnauthorized) {
		code = "forbidden"
	}
	frame, encErr := domain.NewFrame(domain.EventError, domain.ErrorMessage{Code: code, Message: err.Error()})
	if encErr != nil {
		return
	}
	_ = client.Send(ctx, frame)
}
