// Package transition implements the lead stage-transition and
// ownership-reassignment engine. A stage change re-routes the lead to the
// owning team, hands it to that team's manager, opens a follow-up task with a
// 24-hour SLA and appends an audit entry, all inside one transaction so a
// half-applied transition is never visible.
package transition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pipeline_crm_backend/internal/events"
	"pipeline_crm_backend/internal/leads/domain"
	"pipeline_crm_backend/internal/leads/repository"
	"pipeline_crm_backend/platform/apperr"
	"pipeline_crm_backend/platform/db"
	"pipeline_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// taskDeadlineSLA is how long the receiving manager has to reassign the lead.
const taskDeadlineSLA = 24 * time.Hour

const actionStageChange = "Stage Change"

// Repository defines the data access interface needed by the transition
// engine. This is a consumer-driven interface - only what the engine needs.
type Repository interface {
	InTx(ctx context.Context, fn func(ctx context.Context, q db.Querier) error) error
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	GetForUpdate(ctx context.Context, q db.Querier, id uuid.UUID) (repository.Lead, error)
	UpdateRouting(ctx context.Context, q db.Querier, params repository.UpdateRoutingParams) (repository.Lead, error)
	FindTeamManager(ctx context.Context, q db.Querier, team domain.Team) (repository.Manager, error)
	CreateTask(ctx context.Context, q db.Querier, params repository.CreateTaskParams) (uuid.UUID, error)
	CreateNotification(ctx context.Context, q db.Querier, params repository.CreateNotificationParams) (uuid.UUID, error)
	CreateAuditLog(ctx context.Context, q db.Querier, params repository.CreateAuditLogParams) error
	ListAuditLogs(ctx context.Context, leadID uuid.UUID) ([]repository.AuditLog, error)
}

// Service is the transition engine.
type Service struct {
	repo Repository
	bus  events.Bus
	log  *logger.Logger
	now  func() time.Time
}

// New creates a new transition engine service.
func New(repo Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log, now: time.Now}
}

// WithClock overrides the engine clock. Tests use this to pin deadlines.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ChangeStage moves the lead to newStage and applies the full reassignment
// chain. actorID is recorded for audit attribution only; authorization is
// enforced by the caller before this point.
func (s *Service) ChangeStage(ctx context.Context, leadID uuid.UUID, newStage domain.Stage, actorID uuid.UUID, notes string) (repository.Lead, error) {
	if !domain.IsKnownStage(newStage) {
		return repository.Lead{}, apperr.Validation(fmt.Sprintf("unknown stage %q", newStage))
	}
	if actorID == uuid.Nil {
		return repository.Lead{}, apperr.Validation("actor is required")
	}

	newTeam := domain.StageOwnership[newStage]

	var updated repository.Lead
	var fromStage domain.Stage
	var assignedTo *uuid.UUID

	err := s.repo.InTx(ctx, func(ctx context.Context, q db.Querier) error {
		lead, err := s.repo.GetForUpdate(ctx, q, leadID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("lead not found")
			}
			if errors.Is(err, repository.ErrLeadLocked) {
				return apperr.Conflict("lead is being modified by another request")
			}
			return err
		}
		fromStage = lead.Stage

		manager, err := s.repo.FindTeamManager(ctx, q, newTeam)
		switch {
		case errors.Is(err, repository.ErrNoManager):
			// No manager to hand the lead to: leave it explicitly unassigned
			// so it lands in the unassigned queue.
			assignedTo = nil
		case err != nil:
			return err
		default:
			assignedTo = &manager.ID
		}

		updated, err = s.repo.UpdateRouting(ctx, q, repository.UpdateRoutingParams{
			LeadID:       leadID,
			Stage:        newStage,
			AssignedTeam: newTeam,
			AssignedTo:   assignedTo,
		})
		if err != nil {
			return err
		}

		if assignedTo != nil {
			taskID, err := s.repo.CreateTask(ctx, q, repository.CreateTaskParams{
				OwnerID:     *assignedTo,
				LeadID:      leadID,
				Subject:     fmt.Sprintf("Assign Lead: %s", updated.DisplayName()),
				Description: fmt.Sprintf("Lead moved to %s (%s). Please assign to a team member.", newStage.DisplayName(), newTeam),
				Priority:    "High",
				Deadline:    s.now().Add(taskDeadlineSLA),
			})
			if err != nil {
				return err
			}

			if _, err := s.repo.CreateNotification(ctx, q, repository.CreateNotificationParams{
				RecipientID: *assignedTo,
				Message:     fmt.Sprintf("ACTION REQUIRED: New Lead %s in %s needs assignment.", updated.DisplayName(), newStage.DisplayName()),
				LeadID:      &leadID,
				TaskID:      &taskID,
			}); err != nil {
				return err
			}
		}

		return s.repo.CreateAuditLog(ctx, q, repository.CreateAuditLogParams{
			LeadID:    leadID,
			ActorID:   actorID,
			Action:    actionStageChange,
			FromStage: fromStage,
			ToStage:   newStage,
			Notes:     notes,
		})
	})
	if err != nil {
		return repository.Lead{}, err
	}

	if s.log != nil {
		s.log.StageTransition(leadID.String(), string(fromStage), string(newStage), string(newTeam), assignedTo != nil)
	}

	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadStageChanged{
			BaseEvent:  events.NewBaseEvent(),
			LeadID:     leadID,
			LeadName:   updated.DisplayName(),
			FromStage:  string(fromStage),
			ToStage:    string(newStage),
			NewTeam:    string(newTeam),
			AssignedTo: assignedTo,
			ActorID:    actorID,
		})
	}

	return updated, nil
}

// History returns the lead's audit trail, newest first.
func (s *Service) History(ctx context.Context, leadID uuid.UUID) ([]repository.AuditLog, error) {
	if _, err := s.repo.GetByID(ctx, leadID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("lead not found")
		}
		return nil, err
	}
	return s.repo.ListAuditLogs(ctx, leadID)
}

// CanEdit reports whether a user may edit the given lead: managers always,
// team members only while the lead is routed to their team.
func (s *Service) CanEdit(ctx context.Context, isManager bool, userTeam domain.Team, leadID uuid.UUID) (bool, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, apperr.NotFound("lead not found")
		}
		return false, err
	}
	return domain.CanEdit(isManager, userTeam, lead.AssignedTeam), nil
}
