package domain

import "context"

// NotificationRepository persists the admin notification feed
type NotificationRepository interface {
	SaveNotification(ctx context.Context, n *Notification) error
	// ListNotifications returns the newest notifications first
	ListNotifications(ctx context.Context, limit int) ([]Notification, error)
	MarkSeen(ctx context.Context, id string) error
}
