// Package repository provides data access for follow-up reminders.
package repository

import (
	"context"
	"errors"
	"time"

	"pipeline_crm_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("reminder not found")

// Reminder type discriminators.
const (
	TypeAuto   = "AUTO"
	TypeManual = "MANUAL"
)

// Reminder lifecycle states. PENDING is the only non-terminal state.
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusDismissed = "DISMISSED"
)

// Structured rule tags. Automatic reminders are deduplicated per
// (lead, assignee, rule) while PENDING, enforced by a partial unique index.
const (
	RuleStagnant     = "stagnant"
	RuleStaleContact = "stale_contact"
	RuleNewUntouched = "new_untouched"
	RuleManual       = "manual"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Reminder struct {
	ID           uuid.UUID
	LeadID       uuid.UUID
	AssignedTo   uuid.UUID
	ReminderType string
	Status       string
	Rule         string
	DueDate      time.Time
	Message      string
	IsRead       bool
	CreatedAt    time.Time
}

type CreateParams struct {
	LeadID       uuid.UUID
	AssignedTo   uuid.UUID
	ReminderType string
	Rule         string
	DueDate      time.Time
	Message      string
}

// CreateDeduped inserts an automatic reminder unless an identical PENDING one
// already exists for the same lead, assignee and rule. The partial unique
// index absorbs the race between concurrent sweep runs; a suppressed insert
// returns created=false with no error.
func (r *Repository) CreateDeduped(ctx context.Context, params CreateParams) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO follow_up_reminders (lead_id, assigned_to, reminder_type, status, rule, due_date, message)
		VALUES ($1, $2, $3, 'PENDING', $4, $5, $6)
		ON CONFLICT DO NOTHING
		RETURNING id
	`, params.LeadID, params.AssignedTo, params.ReminderType, params.Rule, params.DueDate, params.Message).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return id, true, nil
}

// Create inserts a manual reminder with no dedup.
func (r *Repository) Create(ctx context.Context, params CreateParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO follow_up_reminders (lead_id, assigned_to, reminder_type, status, rule, due_date, message)
		VALUES ($1, $2, $3, 'PENDING', $4, $5, $6)
		RETURNING id
	`, params.LeadID, params.AssignedTo, params.ReminderType, params.Rule, params.DueDate, params.Message).Scan(&id)
	return id, err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Reminder, error) {
	var rem Reminder
	err := r.pool.QueryRow(ctx, `
		SELECT id, lead_id, assigned_to, reminder_type, status, rule, due_date, message, is_read, created_at
		FROM follow_up_reminders
		WHERE id = $1
	`, id).Scan(&rem.ID, &rem.LeadID, &rem.AssignedTo, &rem.ReminderType, &rem.Status,
		&rem.Rule, &rem.DueDate, &rem.Message, &rem.IsRead, &rem.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Reminder{}, ErrNotFound
	}
	return rem, err
}

// ListByAssignee returns a user's reminders, pending first, then newest first.
func (r *Repository) ListByAssignee(ctx context.Context, userID uuid.UUID) ([]Reminder, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, lead_id, assigned_to, reminder_type, status, rule, due_date, message, is_read, created_at
		FROM follow_up_reminders
		WHERE assigned_to = $1
		ORDER BY (status = 'PENDING') DESC, created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reminders := make([]Reminder, 0)
	for rows.Next() {
		var rem Reminder
		if err := rows.Scan(&rem.ID, &rem.LeadID, &rem.AssignedTo, &rem.ReminderType, &rem.Status,
			&rem.Rule, &rem.DueDate, &rem.Message, &rem.IsRead, &rem.CreatedAt); err != nil {
			return nil, err
		}
		reminders = append(reminders, rem)
	}
	return reminders, rows.Err()
}

// Finalize moves a PENDING reminder to a terminal status. Returns false when
// the reminder exists but is no longer PENDING.
func (r *Repository) Finalize(ctx context.Context, id uuid.UUID, assignedTo uuid.UUID, status string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE follow_up_reminders
		SET status = $3
		WHERE id = $1 AND assigned_to = $2 AND status = 'PENDING'
	`, id, assignedTo, status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) MarkRead(ctx context.Context, id uuid.UUID, assignedTo uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE follow_up_reminders SET is_read = true WHERE id = $1 AND assigned_to = $2
	`, id, assignedTo)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LeadCandidate is the slice of lead data the reminder rules need.
type LeadCandidate struct {
	ID         uuid.UUID
	FirstName  string
	LastName   string
	Stage      domain.Stage
	AssignedTo uuid.UUID
	UpdatedAt  time.Time
}

func (c LeadCandidate) DisplayName() string {
	return c.FirstName + " " + c.LastName
}

// StagnantLeads returns the user's leads not updated since the threshold,
// excluding terminal stages.
func (r *Repository) StagnantLeads(ctx context.Context, userID uuid.UUID, threshold time.Time) ([]LeadCandidate, error) {
	return r.queryCandidates(ctx, `
		SELECT id, first_name, last_name, stage, assigned_to, updated_at
		FROM leads
		WHERE assigned_to = $1
		  AND updated_at < $2
		  AND stage NOT IN ('WON', 'LOST', 'DELIVERED')
	`, userID, threshold)
}

// StaleContactLeads returns assigned leads whose last contact predates the
// cutoff, excluding closed and parked stages.
func (r *Repository) StaleContactLeads(ctx context.Context, cutoff time.Time) ([]LeadCandidate, error) {
	return r.queryCandidates(ctx, `
		SELECT id, first_name, last_name, stage, assigned_to, updated_at
		FROM leads
		WHERE assigned_to IS NOT NULL
		  AND last_contacted < $1
		  AND stage NOT IN ('LOST', 'DELIVERED', 'ON_HOLD')
	`, cutoff)
}

// NewUntouchedLeads returns assigned entry-stage leads created before the
// cutoff that have never been contacted.
func (r *Repository) NewUntouchedLeads(ctx context.Context, cutoff time.Time) ([]LeadCandidate, error) {
	return r.queryCandidates(ctx, `
		SELECT id, first_name, last_name, stage, assigned_to, updated_at
		FROM leads
		WHERE assigned_to IS NOT NULL
		  AND stage = 'NEW_INQUIRY'
		  AND created_at < $1
		  AND last_contacted IS NULL
	`, cutoff)
}

// ActiveAssignees returns the distinct users holding leads that can stagnate.
// The scheduler fans the stagnation check out over this set.
func (r *Repository) ActiveAssignees(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT assigned_to
		FROM leads
		WHERE assigned_to IS NOT NULL
		  AND stage NOT IN ('WON', 'LOST', 'DELIVERED')
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) queryCandidates(ctx context.Context, query string, args ...any) ([]LeadCandidate, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := make([]LeadCandidate, 0)
	for rows.Next() {
		var c LeadCandidate
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Stage, &c.AssignedTo, &c.UpdatedAt); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}
