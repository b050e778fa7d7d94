package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"ordercast/internal/app/server/handlers"
	"ordercast/internal/core/contracts"
	"ordercast/internal/core/services"
	"ordercast/pkg/middleware"
)

type Deps struct {
	Tokens        *services.TokenService
	Notifications services.INotificationService
	Rooms         services.IRoomService
	Hub           contracts.Registry
	IngestKey     string
}

type Server struct {
	log                 *slog.Logger
	router              chi.Router
	addr                string
	app                 string
	ingestKey           string
	tokenSvc            *services.TokenService
	authHandler         *handlers.AuthHandler
	wsHandler           *handlers.WSHandler
	notificationHandler *handlers.NotificationHandler
	httpSrv             *http.Server
}

func NewServer(log *slog.Logger, app, addr string, deps Deps) *Server {
	s := &Server{
		log:                 log.With(slog.String("component", "http_server")),
		router:              chi.NewRouter(),
		addr:                addr,
		app:                 app,
		ingestKey:           deps.IngestKey,
		tokenSvc:            deps.Tokens,
		authHandler:         handlers.NewAuthHandler(deps.Tokens),
		wsHandler:           handlers.NewWSHandler(deps.Hub, deps.Rooms),
		notificationHandler: handlers.NewNotificationHandler(deps.Notifications, deps.Rooms),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.TracerMiddleware(s.app))
	r.Use(middleware.RequestLogger(s.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Identity is optional on the socket. Admin joins may still demand it.
	r.With(middleware.AuthMiddleware(s.tokenSvc)).Get("/ws", s.wsHandler.Handler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.IngestKey(s.ingestKey))
		r.Use(chimw.AllowContentType("application/json"))
		r.Post("/auth/token", s.authHandler.IssueToken)
		r.Post("/api/notifications", s.notificationHandler.Create)
		r.Post("/api/orders/{tableId}/status", s.notificationHandler.UpdateOrder)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.IngestKey(s.ingestKey))
		r.Get("/api/notifications", s.notificationHandler.List)
		r.Patch("/api/notifications/{id}/seen", s.notificationHandler.MarkSeen)
		r.Get("/api/rooms/{room}/presence", s.notificationHandler.Presence)
	})
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then drains for up to ten seconds.
func (s *Server) Start(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server - start - listening", slog.String("addr", s.addr))
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("server - stop - shutting down")
	return s.httpSrv.Shutdown(shutdownCtx)
}
