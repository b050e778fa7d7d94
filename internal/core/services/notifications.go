package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ordercast/internal/core/contracts"
	"ordercast/internal/core/domain"
	"ordercast/pkg/logging"
)

var tracer = otel.Tracer("ordercast-services")

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type INotificationService interface {
	// PublishNewOrder stores n when a repository is configured and fans it
	// out to the admin room as an order:new event.
	PublishNewOrder(ctx context.Context, n *domain.Notification) error
	// PublishOrderUpdate forwards an opaque JSON update to one table's room.
	PublishOrderUpdate(ctx context.Context, tableID string, update json.RawMessage) error
	List(ctx context.Context, limit int) ([]domain.Notification, error)
	MarkSeen(ctx context.Context, id string) error
}

type NotificationService struct {
	log  *slog.Logger
	repo domain.NotificationRepository
	tx   contracts.Transactor
	bus  contracts.EventBus
	now  func() time.Time
}

// NewNotificationService wires the publisher. repo and tx may be nil, in
// which case notifications are broadcast but never stored.
func NewNotificationService(
	log *slog.Logger,
	repo domain.NotificationRepository,
	tx contracts.Transactor,
	bus contracts.EventBus,
) *NotificationService {
	return &NotificationService{
		log:  log.With(slog.String("component", "notification_service")),
		repo: repo,
		tx:   tx,
		bus:  bus,
		now:  time.Now,
	}
}

func (s *NotificationService) PublishNewOrder(ctx context.Context, n *domain.Notification) error {
	ctx, span := tracer.Start(ctx, "NotificationService.PublishNewOrder")
	defer span.End()

	if err := validateNotification(n); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid notification")
		s.log.WarnContext(ctx, "notification - publish - rejected", logging.Err(err))
		return err
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	now := s.now().UTC()
	n.IsSeen = false
	n.CreatedAt, n.UpdatedAt = now, now
	span.SetAttributes(
		attribute.String("notification_id", n.ID),
		attribute.String("item_id", n.ItemID),
	)

	if s.repo != nil {
		if err := s.store(ctx, n); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "store failed")
			s.log.ErrorContext(ctx, "notification - publish - store failed", logging.NotificationID(n.ID), logging.Err(err))
			return err
		}
	}

	frame, err := domain.NewFrame(domain.EventOrderNew, n)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.bus.Publish(ctx, domain.AdminRoom, frame); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		s.log.ErrorContext(ctx, "notification - publish - bus failed", logging.NotificationID(n.ID), logging.Err(err))
		return err
	}
	span.SetStatus(codes.Ok, "published")
	s.log.InfoContext(ctx, "notification - publish - success", logging.NotificationID(n.ID), logging.Room(domain.AdminRoom))
	return nil
}

func (s *NotificationService) store(ctx context.Context, n *domain.Notification) error {
	save := func(txCtx context.Context) error {
		_, tSpan := tracer.Start(txCtx, "DB.SaveNotification")
		defer tSpan.End()
		if err := s.repo.SaveNotification(txCtx, n); err != nil {
			tSpan.RecordError(err)
			return err
		}
		return nil
	}
	if s.tx == nil {
		return save(ctx)
	}
	return s.tx.WithTx(ctx, save)
}

func (s *NotificationService) PublishOrderUpdate(ctx context.Context, tableID string, update json.RawMessage) error {
	ctx, span := tracer.Start(ctx, "NotificationService.PublishOrderUpdate", trace.WithAttributes(
		attribute.String("table_id", tableID),
	))
	defer span.End()

	scope, err := domain.CustomerScope(tableID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if len(update) == 0 || !json.Valid(update) {
		err := fmt.Errorf("%w: order update must be JSON", domain.ErrInvalidPayload)
		span.RecordError(err)
		return err
	}
	frame, err := domain.RawFrame(domain.EventOrderUpdate, update)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.bus.Publish(ctx, scope.Room(), frame); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		s.log.ErrorContext(ctx, "notification - order update - bus failed", logging.TableID(scope.TableID()), logging.Err(err))
		return err
	}
	s.log.InfoContext(ctx, "notification - order update - success", logging.Room(scope.Room()))
	return nil
}

// List returns the newest notifications first. Without a repository the
// history is always empty.
func (s *NotificationService) List(ctx context.Context, limit int) ([]domain.Notification, error) {
	ctx, span := tracer.Start(ctx, "NotificationService.List")
	defer span.End()
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	if s.repo == nil {
		return []domain.Notification{}, nil
	}
	out, err := s.repo.ListNotifications(ctx, limit)
	if err != nil {
		span.RecordError(err)
		s.log.ErrorContext(ctx, "notification - list - failed", logging.Err(err))
		return nil, err
	}
	return out, nil
}

func (s *NotificationService) MarkSeen(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "NotificationService.MarkSeen", trace.WithAttributes(
		attribute.String("notification_id", id),
	))
	defer span.End()
	if strings.TrimSpace(id) == "" || s.repo == nil {
		return domain.ErrNotificationNotFound
	}
	if err := s.repo.MarkSeen(ctx, id); err != nil {
		span.RecordError(err)
		return err
	}
	s.log.DebugContext(ctx, "notification - mark seen - success", logging.NotificationID(id))
	return nil
}

func validateNotification(n *domain.Notification) error {
	if n == nil {
		return fmt.Errorf("%w: empty", domain.ErrInvalidNotification)
	}
	switch n.Type {
	case domain.NotificationOrder, domain.NotificationPayment, domain.NotificationReview:
	default:
		return fmt.Errorf("%w: unknown type %q", domain.ErrInvalidNotification, n.Type)
	}
	if strings.TrimSpace(n.ItemID) == "" {
		return fmt.Errorf("%w: missing itemId", domain.ErrInvalidNotification)
	}
	if n.MessageVI == "" && n.MessageEN == "" {
		return fmt.Errorf("%w: missing message", domain.ErrInvalidNotification)
	}
	return nil
}
