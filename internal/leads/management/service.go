// Package management implements lead CRUD, contact tracking and the
// revenue-recognition hook on financial updates.
package management

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pipeline_crm_backend/internal/events"
	"pipeline_crm_backend/internal/leads/domain"
	"pipeline_crm_backend/internal/leads/repository"
	revenuerepo "pipeline_crm_backend/internal/revenue/repository"
	"pipeline_crm_backend/platform/apperr"
	"pipeline_crm_backend/platform/db"
	"pipeline_crm_backend/platform/logger"
	"pipeline_crm_backend/platform/phone"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the SQLSTATE for a unique constraint violation.
const pgUniqueViolation = "23505"

// Repository defines the lead data access needed by the management service.
type Repository interface {
	InTx(ctx context.Context, fn func(ctx context.Context, q db.Querier) error) error
	Create(ctx context.Context, params repository.CreateLeadParams) (repository.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	GetForUpdate(ctx context.Context, q db.Querier, id uuid.UUID) (repository.Lead, error)
	Update(ctx context.Context, q db.Querier, params repository.UpdateLeadParams) (repository.Lead, error)
	UpdateFinancials(ctx context.Context, q db.Querier, params repository.UpdateFinancialsParams) (repository.Lead, error)
	MarkContacted(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	List(ctx context.Context, filter repository.ListFilter) ([]repository.Lead, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// RevenueRepository books revenue records inside the lead transaction.
type RevenueRepository interface {
	Create(ctx context.Context, q db.Querier, params revenuerepo.CreateParams) (uuid.UUID, error)
}

// Service handles lead lifecycle operations outside stage transitions.
type Service struct {
	repo    Repository
	revenue RevenueRepository
	bus     events.Bus
	log     *logger.Logger
	now     func() time.Time
}

func New(repo Repository, revenue RevenueRepository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, revenue: revenue, bus: bus, log: log, now: time.Now}
}

// WithClock overrides the service clock. Tests use this to pin the booking month.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type CreateLeadInput struct {
	FirstName          string
	LastName           string
	Email              string
	Phone              string
	CompanyName        *string
	TechRequirements   *string
	LeadGenerator      *uuid.UUID
	ProjectAmountCents int64
}

// CreateLead creates a lead in the entry stage, routed to the entry stage's
// owning team. The phone number is canonicalized before the uniqueness check.
func (s *Service) CreateLead(ctx context.Context, input CreateLeadInput) (repository.Lead, error) {
	if input.ProjectAmountCents < 0 {
		return repository.Lead{}, apperr.Validation("project amount cannot be negative")
	}

	lead, err := s.repo.Create(ctx, repository.CreateLeadParams{
		FirstName:          input.FirstName,
		LastName:           input.LastName,
		Email:              input.Email,
		Phone:              phone.NormalizeE164(input.Phone),
		CompanyName:        input.CompanyName,
		TechRequirements:   input.TechRequirements,
		LeadGenerator:      input.LeadGenerator,
		ProjectAmountCents: input.ProjectAmountCents,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return repository.Lead{}, apperr.Conflict("a lead with this email or phone number already exists")
		}
		return repository.Lead{}, err
	}
	return lead, nil
}

func (s *Service) GetLead(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, apperr.NotFound("lead not found")
		}
		return repository.Lead{}, err
	}
	return lead, nil
}

type UpdateLeadInput struct {
	FirstName        *string
	LastName         *string
	Email            *string
	Phone            *string
	CompanyName      *string
	TechRequirements *string
}

// UpdateLead updates contact details under the lead's row lock.
func (s *Service) UpdateLead(ctx context.Context, leadID uuid.UUID, input UpdateLeadInput) (repository.Lead, error) {
	if input.Phone != nil {
		normalized := phone.NormalizeE164(*input.Phone)
		input.Phone = &normalized
	}

	var updated repository.Lead
	err := s.repo.InTx(ctx, func(ctx context.Context, q db.Querier) error {
		if _, err := s.repo.GetForUpdate(ctx, q, leadID); err != nil {
			return mapLockErr(err)
		}
		var err error
		updated, err = s.repo.Update(ctx, q, repository.UpdateLeadParams{
			LeadID:           leadID,
			FirstName:        input.FirstName,
			LastName:         input.LastName,
			Email:            input.Email,
			Phone:            input.Phone,
			CompanyName:      input.CompanyName,
			TechRequirements: input.TechRequirements,
		})
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return repository.Lead{}, apperr.Conflict("a lead with this email or phone number already exists")
		}
		return repository.Lead{}, err
	}
	return updated, nil
}

type UpdateFinancialsInput struct {
	ProjectAmountCents *int64
	AdvanceAmountCents *int64
}

// UpdateFinancials updates the money fields and books revenue for the lead
// generator when the advance amount increases. The prior advance is read under
// the row lock and the revenue record is written in the same transaction, so
// the booked delta always matches the committed balance change.
//
// Revenue is only booked when all three conditions hold: the advance
// increased, the lead is in a revenue-eligible stage, and a lead generator is
// recorded. Decreases (refunds, corrections) adjust the balance but are never
// booked as negative revenue.
func (s *Service) UpdateFinancials(ctx context.Context, leadID uuid.UUID, input UpdateFinancialsInput) (repository.Lead, error) {
	if input.ProjectAmountCents != nil && *input.ProjectAmountCents < 0 {
		return repository.Lead{}, apperr.Validation("project amount cannot be negative")
	}
	if input.AdvanceAmountCents != nil && *input.AdvanceAmountCents < 0 {
		return repository.Lead{}, apperr.Validation("advance amount cannot be negative")
	}

	var updated repository.Lead
	var booked *events.AdvanceRecorded

	err := s.repo.InTx(ctx, func(ctx context.Context, q db.Querier) error {
		prior, err := s.repo.GetForUpdate(ctx, q, leadID)
		if err != nil {
			return mapLockErr(err)
		}

		updated, err = s.repo.UpdateFinancials(ctx, q, repository.UpdateFinancialsParams{
			LeadID:             leadID,
			ProjectAmountCents: input.ProjectAmountCents,
			AdvanceAmountCents: input.AdvanceAmountCents,
		})
		if err != nil {
			return err
		}

		delta := updated.AdvanceAmountCents - prior.AdvanceAmountCents
		if delta <= 0 || !domain.IsRevenueEligible(updated.Stage) || updated.LeadGenerator == nil {
			return nil
		}

		bookedAt := s.now()
		if _, err := s.revenue.Create(ctx, q, revenuerepo.CreateParams{
			UserID:      *updated.LeadGenerator,
			LeadID:      leadID,
			AmountCents: delta,
			Month:       int(bookedAt.Month()),
			Year:        bookedAt.Year(),
		}); err != nil {
			return err
		}

		booked = &events.AdvanceRecorded{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    leadID,
			UserID:    *updated.LeadGenerator,
			Amount:    formatCents(delta),
			Month:     int(bookedAt.Month()),
			Year:      bookedAt.Year(),
		}
		return nil
	})
	if err != nil {
		return repository.Lead{}, err
	}

	if booked != nil && s.bus != nil {
		s.bus.Publish(ctx, *booked)
	}
	return updated, nil
}

// MarkContacted stamps the lead's last-contacted time with now.
func (s *Service) MarkContacted(ctx context.Context, leadID uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.MarkContacted(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.Lead{}, apperr.NotFound("lead not found")
		}
		return repository.Lead{}, err
	}
	return lead, nil
}

func (s *Service) ListLeads(ctx context.Context, filter repository.ListFilter) ([]repository.Lead, error) {
	if filter.Stage != nil && !domain.IsKnownStage(*filter.Stage) {
		return nil, apperr.Validation(fmt.Sprintf("unknown stage %q", *filter.Stage))
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) DeleteLead(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("lead not found")
		}
		return err
	}
	return nil
}

func mapLockErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("lead not found")
	}
	if errors.Is(err, repository.ErrLeadLocked) {
		return apperr.Conflict("lead is being modified by another request")
	}
	return err
}

func formatCents(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
