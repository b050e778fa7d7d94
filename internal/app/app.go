package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"ordercast/internal/app/registry"
	"ordercast/internal/app/server"
	"ordercast/internal/app/worker"
	"ordercast/internal/config"
	"ordercast/internal/core/contracts"
	"ordercast/internal/core/domain"
	"ordercast/internal/core/services"
	"ordercast/internal/platform/telemetry"
	"ordercast/internal/plugins/memory"
	"ordercast/internal/plugins/postgres"
	redisPlugin "ordercast/internal/plugins/redis"
	"ordercast/pkg/logging"
)

// Serve runs the notification server until ctx is cancelled.
func Serve(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("app - telemetry - init failed", logging.Err(err))
		otelShutdown = func(context.Context) error { return nil }
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Error("app - telemetry - shutdown failed", logging.Err(err))
		}
	}()

	// Infra
	var (
		bus      contracts.EventBus
		presence contracts.PresenceStore
		repo     domain.NotificationRepository
		tx       contracts.Transactor
	)
	if cfg.Redis.URL != "" {
		var rdb *goredis.Client
		if rdb, err = redisPlugin.NewRedisClient(ctx, cfg.Redis); err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer rdb.Close()
		bus = redisPlugin.NewRedisEventBus(log, rdb)
		presence = redisPlugin.NewRedisPresenceStore(rdb)
		log.Info("app - redis - connected")
	} else {
		bus = memory.NewEventBus(log, 0)
		log.Warn("app - redis - not configured, single node bus without presence")
	}
	if cfg.Postgres.DSN != "" {
		var pdb *sql.DB
		if pdb, err = postgres.New(ctx, cfg.Postgres); err != nil {
			return fmt.Errorf("postgres connect: %w", err)
		}
		defer pdb.Close()
		if err := postgres.Migrate(ctx, pdb); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
		repo = postgres.NewNotificationRepo(pdb)
		tx = postgres.NewTxManager(pdb)
		log.Info("app - postgres - connected")
	} else {
		log.Warn("app - postgres - not configured, notifications are not stored")
	}

	// Core services
	hub := registry.NewRegistry(log)
	tokenSvc := services.NewTokenService(log, cfg.Auth.Secret, cfg.Auth.TokenTTL)
	notifySvc := services.NewNotificationService(log, repo, tx, bus)
	roomSvc := services.NewRoomService(log, hub, presence, services.RoomOptions{
		RequireAdminToken: cfg.Auth.RequireAdminToken,
		PresenceTTL:       cfg.Presence.TTL,
		Heartbeat:         cfg.Presence.Heartbeat,
	})
	if cfg.Auth.RequireAdminToken && !tokenSvc.Enabled() {
		return fmt.Errorf("%w: requireAdminToken needs auth.secret", domain.ErrInvalidConfig)
	}

	relay := worker.NewRelayWorker(log, bus, hub)
	srv := server.NewServer(log, cfg.Service.Name, cfg.Service.Addr, server.Deps{
		Tokens:        tokenSvc,
		Notifications: notifySvc,
		Rooms:         roomSvc,
		Hub:           hub,
		IngestKey:     cfg.Auth.IngestKey,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return relay.Run(gctx) })
	g.Go(func() error { return srv.Start(gctx) })
	return g.Wait()
}
