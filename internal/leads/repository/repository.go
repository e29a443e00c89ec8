package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"pipeline_crm_backend/internal/leads/domain"
	"pipeline_crm_backend/platform/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

// ErrLeadLocked is returned when a lead row is held by a concurrent
// transaction. Per-lead mutations are serialized with FOR UPDATE NOWAIT so a
// conflicting in-flight mutation surfaces immediately instead of blocking.
var ErrLeadLocked = errors.New("lead is being modified by another request")

// pgLockNotAvailable is the SQLSTATE raised by FOR UPDATE NOWAIT on contention.
const pgLockNotAvailable = "55P03"

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID                 uuid.UUID
	FirstName          string
	LastName           string
	Email              string
	Phone              string
	CompanyName        *string
	TechRequirements   *string
	Stage              domain.Stage
	AssignedTeam       domain.Team
	AssignedTo         *uuid.UUID
	LeadGenerator      *uuid.UUID
	ProjectAmountCents int64
	AdvanceAmountCents int64
	LastContacted      *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// DisplayName returns the lead's full name for messages and task subjects.
func (l Lead) DisplayName() string {
	return l.FirstName + " " + l.LastName
}

const leadColumns = `id, first_name, last_name, email, phone, company_name, tech_requirements,
		stage, assigned_team, assigned_to, lead_generator,
		project_amount_cents, advance_amount_cents, last_contacted, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.FirstName, &lead.LastName, &lead.Email, &lead.Phone,
		&lead.CompanyName, &lead.TechRequirements,
		&lead.Stage, &lead.AssignedTeam, &lead.AssignedTo, &lead.LeadGenerator,
		&lead.ProjectAmountCents, &lead.AdvanceAmountCents, &lead.LastContacted,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}
	return lead, nil
}

type CreateLeadParams struct {
	FirstName          string
	LastName           string
	Email              string
	Phone              string
	CompanyName        *string
	TechRequirements   *string
	AssignedTo         *uuid.UUID
	LeadGenerator      *uuid.UUID
	ProjectAmountCents int64
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			first_name, last_name, email, phone, company_name, tech_requirements,
			stage, assigned_team, assigned_to, lead_generator, project_amount_cents
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+leadColumns,
		params.FirstName, params.LastName, params.Email, params.Phone,
		params.CompanyName, params.TechRequirements,
		domain.StageNewInquiry, domain.StageOwnership[domain.StageNewInquiry],
		params.AssignedTo, params.LeadGenerator, params.ProjectAmountCents,
	)
	return scanLead(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	return scanLead(row)
}

// GetForUpdate loads the lead with a row lock held for the remainder of the
// surrounding transaction. NOWAIT turns lock contention into ErrLeadLocked so
// the caller can report a concurrent-modification conflict.
func (r *Repository) GetForUpdate(ctx context.Context, q db.Querier, id uuid.UUID) (Lead, error) {
	row := q.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1 FOR UPDATE NOWAIT`, id)
	lead, err := scanLead(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
			return Lead{}, ErrLeadLocked
		}
		return Lead{}, err
	}
	return lead, nil
}

// InTx runs fn inside a transaction. fn receives a Querier bound to the
// transaction; any error rolls the whole transaction back.
func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, q db.Querier) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

type UpdateRoutingParams struct {
	LeadID       uuid.UUID
	Stage        domain.Stage
	AssignedTeam domain.Team
	AssignedTo   *uuid.UUID
}

// UpdateRouting applies the stage transition fields. Callers must hold the
// row lock acquired via GetForUpdate.
func (r *Repository) UpdateRouting(ctx context.Context, q db.Querier, params UpdateRoutingParams) (Lead, error) {
	row := q.QueryRow(ctx, `
		UPDATE leads
		SET stage = $2, assigned_team = $3, assigned_to = $4, updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		params.LeadID, params.Stage, params.AssignedTeam, params.AssignedTo,
	)
	return scanLead(row)
}

type UpdateFinancialsParams struct {
	LeadID             uuid.UUID
	ProjectAmountCents *int64
	AdvanceAmountCents *int64
}

// UpdateFinancials updates the money fields. Callers must hold the row lock
// acquired via GetForUpdate so the advance-amount delta is computed against a
// stable prior value.
func (r *Repository) UpdateFinancials(ctx context.Context, q db.Querier, params UpdateFinancialsParams) (Lead, error) {
	row := q.QueryRow(ctx, `
		UPDATE leads
		SET project_amount_cents = COALESCE($2, project_amount_cents),
			advance_amount_cents = COALESCE($3, advance_amount_cents),
			updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		params.LeadID, params.ProjectAmountCents, params.AdvanceAmountCents,
	)
	return scanLead(row)
}

type UpdateLeadParams struct {
	LeadID           uuid.UUID
	FirstName        *string
	LastName         *string
	Email            *string
	Phone            *string
	CompanyName      *string
	TechRequirements *string
}

func (r *Repository) Update(ctx context.Context, q db.Querier, params UpdateLeadParams) (Lead, error) {
	row := q.QueryRow(ctx, `
		UPDATE leads
		SET first_name = COALESCE($2, first_name),
			last_name = COALESCE($3, last_name),
			email = COALESCE($4, email),
			phone = COALESCE($5, phone),
			company_name = COALESCE($6, company_name),
			tech_requirements = COALESCE($7, tech_requirements),
			updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns,
		params.LeadID, params.FirstName, params.LastName, params.Email,
		params.Phone, params.CompanyName, params.TechRequirements,
	)
	return scanLead(row)
}

// MarkContacted stamps last_contacted (and updated_at) with the current time.
func (r *Repository) MarkContacted(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE leads
		SET last_contacted = now(), updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns, id)
	return scanLead(row)
}

type ListFilter struct {
	Stage      *domain.Stage
	AssignedTo *uuid.UUID
	Unassigned bool
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE 1=1`
	args := []any{}

	if filter.Stage != nil {
		args = append(args, *filter.Stage)
		query += ` AND stage = $` + strconv.Itoa(len(args))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		query += ` AND assigned_to = $` + strconv.Itoa(len(args))
	}
	if filter.Unassigned {
		query += ` AND assigned_to IS NULL`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
