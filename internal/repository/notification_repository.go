package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticketflow/internal/domain"
)

// NotificationRepository stores per-recipient notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error)
	// MarkRead flips the read flag for a notification owned by recipientID.
	// It returns pgx.ErrNoRows when no such notification exists for them.
	MarkRead(ctx context.Context, id, recipientID string) (*domain.Notification, error)
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (recipient_id, type, ticket_id, message)
        VALUES ($1,$2,$3,$4)
        RETURNING id, is_read, created_at`
	return r.pool.QueryRow(ctx, query,
		n.RecipientID,
		n.Type,
		n.TicketID,
		n.Message,
	).Scan(&n.ID, &n.Read, &n.CreatedAt)
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, recipientID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	limit, offset = normalizePage(limit, offset)
	query := `
        SELECT id, recipient_id, type, ticket_id, message, is_read, created_at, read_at
        FROM notifications WHERE recipient_id=$1`
	if unreadOnly {
		query += ` AND is_read=FALSE`
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, offset)

	rows, err := r.pool.Query(ctx, query, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}
	return result, rows.Err()
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, recipientID string) (*domain.Notification, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	const query = `
        UPDATE notifications SET is_read=TRUE, read_at=COALESCE(read_at, NOW())
        WHERE id=$1 AND recipient_id=$2
        RETURNING id, recipient_id, type, ticket_id, message, is_read, created_at, read_at`
	return scanNotification(r.pool.QueryRow(ctx, query, id, recipientID))
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	if err := row.Scan(
		&n.ID,
		&n.RecipientID,
		&n.Type,
		&n.TicketID,
		&n.Message,
		&n.Read,
		&n.CreatedAt,
		&n.ReadAt,
	); err != nil {
		return nil, err
	}
	return &n, nil
}
