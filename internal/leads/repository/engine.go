package repository

import (
	"context"
	"errors"
	"time"

	"pipeline_crm_backend/internal/leads/domain"
	"pipeline_crm_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrNoManager is returned when the owning team of a stage has no manager.
// The transition engine treats this as an explicit unassignment, not a failure.
var ErrNoManager = errors.New("no manager for team")

// Manager is the user a transitioned lead is handed to.
type Manager struct {
	ID       uuid.UUID
	Username string
}

// FindTeamManager returns the manager of the given team. Ties between
// multiple managers are broken deterministically by lowest id so repeated
// transitions over identical data always pick the same manager.
func (r *Repository) FindTeamManager(ctx context.Context, q db.Querier, team domain.Team) (Manager, error) {
	var manager Manager
	err := q.QueryRow(ctx, `
		SELECT id, username FROM users
		WHERE team = $1 AND is_manager = true
		ORDER BY id ASC
		LIMIT 1
	`, team).Scan(&manager.ID, &manager.Username)
	if errors.Is(err, pgx.ErrNoRows) {
		return Manager{}, ErrNoManager
	}
	if err != nil {
		return Manager{}, err
	}
	return manager, nil
}

type CreateTaskParams struct {
	OwnerID     uuid.UUID
	LeadID      uuid.UUID
	Subject     string
	Description string
	Priority    string
	Deadline    time.Time
}

// CreateTask inserts a follow-up task. The transition engine calls this
// inside the lead transaction so the task is only visible once the stage
// change is durable.
func (r *Repository) CreateTask(ctx context.Context, q db.Querier, params CreateTaskParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.QueryRow(ctx, `
		INSERT INTO tasks (owner_id, lead_id, subject, description, priority, status, deadline)
		VALUES ($1, $2, $3, $4, $5, 'Not Started', $6)
		RETURNING id
	`, params.OwnerID, params.LeadID, params.Subject, params.Description, params.Priority, params.Deadline).Scan(&id)
	return id, err
}

type CreateNotificationParams struct {
	RecipientID uuid.UUID
	Message     string
	LeadID      *uuid.UUID
	TaskID      *uuid.UUID
}

// CreateNotification inserts an in-app notification row.
func (r *Repository) CreateNotification(ctx context.Context, q db.Querier, params CreateNotificationParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.QueryRow(ctx, `
		INSERT INTO notifications (recipient_id, message, lead_id, task_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, params.RecipientID, params.Message, params.LeadID, params.TaskID).Scan(&id)
	return id, err
}

type CreateAuditLogParams struct {
	LeadID    uuid.UUID
	ActorID   uuid.UUID
	Action    string
	FromStage domain.Stage
	ToStage   domain.Stage
	Notes     string
}

// CreateAuditLog appends an immutable audit entry for a stage transition.
func (r *Repository) CreateAuditLog(ctx context.Context, q db.Querier, params CreateAuditLogParams) error {
	_, err := q.Exec(ctx, `
		INSERT INTO audit_logs (lead_id, actor_id, action, from_stage, to_stage, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, params.LeadID, params.ActorID, params.Action, params.FromStage, params.ToStage, params.Notes)
	return err
}

// AuditLog is a single immutable transition record.
type AuditLog struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	ActorID   *uuid.UUID
	Action    string
	FromStage domain.Stage
	ToStage   domain.Stage
	Notes     string
	CreatedAt time.Time
}

// ListAuditLogs returns the transition history of a lead, newest first.
func (r *Repository) ListAuditLogs(ctx context.Context, leadID uuid.UUID) ([]AuditLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, actor_id, action, from_stage, to_stage, notes, created_at
		FROM audit_logs
		WHERE lead_id = $1
		ORDER BY created_at DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]AuditLog, 0)
	for rows.Next() {
		var entry AuditLog
		if err := rows.Scan(&entry.ID, &entry.LeadID, &entry.ActorID, &entry.Action,
			&entry.FromStage, &entry.ToStage, &entry.Notes, &entry.CreatedAt); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
