// Package repository provides data access for booked revenue records.
package repository

import (
	"context"
	"time"

	"pipeline_crm_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RevenueRecord is one booked advance-payment delta attributed to the user
// who generated the lead. Records are append-only.
type RevenueRecord struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	LeadID      uuid.UUID
	AmountCents int64
	Month       int
	Year        int
	CreatedAt   time.Time
}

type CreateParams struct {
	UserID      uuid.UUID
	LeadID      uuid.UUID
	AmountCents int64
	Month       int
	Year        int
}

// Create appends a revenue record. It takes a Querier so the lead management
// service can book the record inside the same transaction that updates the
// lead's advance amount.
func (r *Repository) Create(ctx context.Context, q db.Querier, params CreateParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.QueryRow(ctx, `
		INSERT INTO revenue_records (user_id, lead_id, amount_cents, month, year)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, params.UserID, params.LeadID, params.AmountCents, params.Month, params.Year).Scan(&id)
	return id, err
}

// MonthlyTotal returns the summed revenue booked for a user in a given month.
func (r *Repository) MonthlyTotal(ctx context.Context, userID uuid.UUID, month, year int) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM revenue_records
		WHERE user_id = $1 AND month = $2 AND year = $3
	`, userID, month, year).Scan(&total)
	return total, err
}

// ListByUser returns a user's revenue records, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]RevenueRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, lead_id, amount_cents, month, year, created_at
		FROM revenue_records
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]RevenueRecord, 0)
	for rows.Next() {
		var rec RevenueRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.LeadID, &rec.AmountCents,
			&rec.Month, &rec.Year, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// TeamSummaryRow is one user's total for a month, for the manager rollup.
type TeamSummaryRow struct {
	UserID      uuid.UUID
	Username    string
	AmountCents int64
}

// TeamSummary returns per-user revenue totals for a month across all users
// that booked anything.
func (r *Repository) TeamSummary(ctx context.Context, month, year int) ([]TeamSummaryRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT rr.user_id, u.username, SUM(rr.amount_cents)
		FROM revenue_records rr
		JOIN users u ON u.id = rr.user_id
		WHERE rr.month = $1 AND rr.year = $2
		GROUP BY rr.user_id, u.username
		ORDER BY SUM(rr.amount_cents) DESC
	`, month, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := make([]TeamSummaryRow, 0)
	for rows.Next() {
		var row TeamSummaryRow
		if err := rows.Scan(&row.UserID, &row.Username, &row.AmountCents); err != nil {
			return nil, err
		}
		summary = append(summary, row)
	}
	return summary, rows.Err()
}
