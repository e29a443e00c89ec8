// Package repository provides data access for tasks. Task rows are created by
// the transition engine inside the lead transaction; this package owns reads
// and status updates.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("task not found")

// Task lifecycle states.
const (
	StatusNotStarted = "Not Started"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Task struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	LeadID      *uuid.UUID
	Subject     string
	Description string
	Priority    string
	Status      string
	Deadline    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const taskColumns = `id, owner_id, lead_id, subject, description, priority, status, deadline, created_at, updated_at`

func scanTask(row pgx.Row) (Task, error) {
	var t Task
	err := row.Scan(&t.ID, &t.OwnerID, &t.LeadID, &t.Subject, &t.Description,
		&t.Priority, &t.Status, &t.Deadline, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	return t, err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Task, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	return scanTask(row)
}

// ListByOwner returns the user's tasks, open ones first ordered by deadline.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE owner_id = $1
		ORDER BY (status = 'Completed') ASC, deadline ASC
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// UpdateStatus sets the task status, scoped to the owner.
func (r *Repository) UpdateStatus(ctx context.Context, id, ownerID uuid.UUID, status string) (Task, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET status = $3, updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING `+taskColumns,
		id, ownerID, status)
	return scanTask(row)
}

// CountOverdue returns the user's open tasks past their deadline.
func (r *Repository) CountOverdue(ctx context.Context, ownerID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM tasks
		WHERE owner_id = $1 AND status <> 'Completed' AND deadline < now()
	`, ownerID).Scan(&count)
	return count, err
}
