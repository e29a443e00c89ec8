// Package inapp provides storage and delivery of in-app notifications.
package inapp

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("notification not found")

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Notification struct {
	ID          uuid.UUID
	RecipientID uuid.UUID
	Message     string
	LeadID      *uuid.UUID
	TaskID      *uuid.UUID
	IsRead      bool
	CreatedAt   time.Time
}

type CreateParams struct {
	RecipientID uuid.UUID
	Message     string
	LeadID      *uuid.UUID
	TaskID      *uuid.UUID
}

func (r *Repository) Create(ctx context.Context, params CreateParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (recipient_id, message, lead_id, task_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, params.RecipientID, params.Message, params.LeadID, params.TaskID).Scan(&id)
	return id, err
}

// ListByRecipient returns the user's notifications, newest first.
func (r *Repository) ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, recipient_id, message, lead_id, task_id, is_read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, recipientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.Message, &n.LeadID, &n.TaskID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *Repository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND is_read = false
	`, recipientID).Scan(&count)
	return count, err
}

func (r *Repository) MarkRead(ctx context.Context, id, recipientID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET is_read = true WHERE id = $1 AND recipient_id = $2
	`, id, recipientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context, recipientID uuid.UUID) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications SET is_read = true WHERE recipient_id = $1 AND is_read = false
	`, recipientID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
