package postgres

import (
	"context"
	"database/sql"

	"ordercast/internal/core/domain"
)

type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo {
	return &NotificationRepo{
		db: db,
	}
}

func (r *NotificationRepo) SaveNotification(ctx context.Context, n *domain.Notification) error {
	exec := GetExecutor(ctx, r.db)
	_, err := exec.ExecContext(ctx, `
        INSERT INTO notifications (
            id, type, item_id, message_vi, message_en, is_seen, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `,
		n.ID,
		string(n.Type),
		n.ItemID,
		n.MessageVI,
		n.MessageEN,
		n.IsSeen,
		n.CreatedAt,
		n.UpdatedAt,
	)
	return err
}

// ListNotifications returns the newest notifications first.
func (r *NotificationRepo) ListNotifications(ctx context.Context, limit int) ([]domain.Notification, error) {
	exec := GetExecutor(ctx, r.db)
	rows, err := exec.QueryContext(ctx, `
        SELECT id, type, item_id, message_vi, message_en, is_seen, created_at, updated_at
        FROM notifications
        ORDER BY created_at DESC
        LIMIT $1
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Notification, 0, limit)
	for rows.Next() {
		var n domain.Notification
		var typ string
		if err := rows.Scan(&n.ID, &typ, &n.ItemID, &n.MessageVI, &n.MessageEN, &n.IsSeen, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		n.Type = domain.NotificationType(typ)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NotificationRepo) MarkSeen(ctx context.Context, id string) error {
	exec := GetExecutor(ctx, r.db)
	res, err := exec.ExecContext(ctx, `
        UPDATE notifications
        SET is_seen = TRUE, updated_at = now()
        WHERE id = $1
    `, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}
