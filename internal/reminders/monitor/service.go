// Package monitor implements the follow-up reminder monitor: the per-user
// stagnation check and the scheduled stale-contact and new-lead sweeps.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pipeline_crm_backend/internal/events"
	"pipeline_crm_backend/internal/reminders/repository"
	"pipeline_crm_backend/platform/apperr"
	"pipeline_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// Rule thresholds. A lead counts as stagnant after 2 days without any update;
// contact goes stale after 3 days; an entry-stage lead is flagged 24 hours
// after creation if nobody has logged contact.
const (
	stagnationThreshold = 48 * time.Hour
	staleContactCutoff  = 72 * time.Hour
	newUntouchedCutoff  = 24 * time.Hour
)

// Repository defines the data access interface needed by the reminder service.
type Repository interface {
	CreateDeduped(ctx context.Context, params repository.CreateParams) (uuid.UUID, bool, error)
	Create(ctx context.Context, params repository.CreateParams) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (repository.Reminder, error)
	ListByAssignee(ctx context.Context, userID uuid.UUID) ([]repository.Reminder, error)
	Finalize(ctx context.Context, id uuid.UUID, assignedTo uuid.UUID, status string) (bool, error)
	MarkRead(ctx context.Context, id uuid.UUID, assignedTo uuid.UUID) error
	StagnantLeads(ctx context.Context, userID uuid.UUID, threshold time.Time) ([]repository.LeadCandidate, error)
	StaleContactLeads(ctx context.Context, cutoff time.Time) ([]repository.LeadCandidate, error)
	NewUntouchedLeads(ctx context.Context, cutoff time.Time) ([]repository.LeadCandidate, error)
	ActiveAssignees(ctx context.Context) ([]uuid.UUID, error)
}

type Service struct {
	repo Repository
	bus  events.Bus
	log  *logger.Logger
	now  func() time.Time
}

func New(repo Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log, now: time.Now}
}

// WithClock overrides the service clock. Tests use this to pin thresholds.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CheckAndAlert scans the user's leads for stagnation and creates one PENDING
// reminder per stagnant lead. Returns the number of reminders actually
// created; leads already carrying a pending stagnation reminder are skipped by
// the store-level dedup.
func (s *Service) CheckAndAlert(ctx context.Context, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, apperr.Validation("user is required")
	}

	now := s.now()
	candidates, err := s.repo.StagnantLeads(ctx, userID, now.Add(-stagnationThreshold))
	if err != nil {
		return 0, err
	}

	created := 0
	for _, lead := range candidates {
		message := fmt.Sprintf("Stagnant Lead: %s has been in %s since %s.",
			lead.DisplayName(), lead.Stage.DisplayName(), lead.UpdatedAt.Format("2006-01-02"))

		id, ok, err := s.repo.CreateDeduped(ctx, repository.CreateParams{
			LeadID:       lead.ID,
			AssignedTo:   userID,
			ReminderType: repository.TypeAuto,
			Rule:         repository.RuleStagnant,
			DueDate:      now,
			Message:      message,
		})
		if err != nil {
			return created, err
		}
		if !ok {
			continue
		}
		created++
		s.publishCreated(ctx, id, lead, repository.RuleStagnant, message)
	}
	return created, nil
}

// SweepCounts reports how many reminders each sweep rule created.
type SweepCounts struct {
	Stale int
	New   int
}

// RunStaleAndNewLeadSweep applies the two scheduled reminder rules across all
// assigned leads. Safe to run repeatedly: dedup suppresses repeats while the
// earlier reminder is still pending.
func (s *Service) RunStaleAndNewLeadSweep(ctx context.Context) (SweepCounts, error) {
	now := s.now()
	var counts SweepCounts

	stale, err := s.repo.StaleContactLeads(ctx, now.Add(-staleContactCutoff))
	if err != nil {
		return counts, err
	}
	for _, lead := range stale {
		if err := s.createSweepReminder(ctx, lead, repository.RuleStaleContact, now,
			"Stale Lead: Has not been contacted in over 3 days. Please follow up.", &counts.Stale); err != nil {
			return counts, err
		}
	}

	fresh, err := s.repo.NewUntouchedLeads(ctx, now.Add(-newUntouchedCutoff))
	if err != nil {
		return counts, err
	}
	for _, lead := range fresh {
		if err := s.createSweepReminder(ctx, lead, repository.RuleNewUntouched, now,
			"New Lead: Created over 24 hours ago and no contact logged.", &counts.New); err != nil {
			return counts, err
		}
	}

	if s.log != nil {
		s.log.SweepResult("reminder_sweep", counts.Stale+counts.New, 0)
	}
	return counts, nil
}

func (s *Service) createSweepReminder(ctx context.Context, lead repository.LeadCandidate, rule string, now time.Time, message string, counter *int) error {
	id, ok, err := s.repo.CreateDeduped(ctx, repository.CreateParams{
		LeadID:       lead.ID,
		AssignedTo:   lead.AssignedTo,
		ReminderType: repository.TypeAuto,
		Rule:         rule,
		DueDate:      now,
		Message:      message,
	})
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	*counter++
	s.publishCreated(ctx, id, lead, rule, message)
	return nil
}

func (s *Service) publishCreated(ctx context.Context, reminderID uuid.UUID, lead repository.LeadCandidate, rule, message string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, events.ReminderCreated{
		BaseEvent:  events.NewBaseEvent(),
		ReminderID: reminderID,
		LeadID:     lead.ID,
		LeadName:   lead.DisplayName(),
		AssignedTo: lead.AssignedTo,
		Rule:       rule,
		Message:    message,
	})
}

type CreateManualInput struct {
	LeadID  uuid.UUID
	DueDate time.Time
	Message string
}

// CreateManual creates a user-authored reminder for one of their leads.
func (s *Service) CreateManual(ctx context.Context, userID uuid.UUID, input CreateManualInput) (repository.Reminder, error) {
	if input.Message == "" {
		return repository.Reminder{}, apperr.Validation("message is required")
	}
	due := input.DueDate
	if due.IsZero() {
		due = s.now()
	}

	id, err := s.repo.Create(ctx, repository.CreateParams{
		LeadID:       input.LeadID,
		AssignedTo:   userID,
		ReminderType: repository.TypeManual,
		Rule:         repository.RuleManual,
		DueDate:      due,
		Message:      input.Message,
	})
	if err != nil {
		return repository.Reminder{}, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]repository.Reminder, error) {
	return s.repo.ListByAssignee(ctx, userID)
}

// Complete moves a pending reminder to COMPLETED.
func (s *Service) Complete(ctx context.Context, id, userID uuid.UUID) error {
	return s.finalize(ctx, id, userID, repository.StatusCompleted)
}

// Dismiss moves a pending reminder to DISMISSED.
func (s *Service) Dismiss(ctx context.Context, id, userID uuid.UUID) error {
	return s.finalize(ctx, id, userID, repository.StatusDismissed)
}

// finalize enforces the lifecycle: only PENDING reminders can move, and
// terminal states are final.
func (s *Service) finalize(ctx context.Context, id, userID uuid.UUID, status string) error {
	ok, err := s.repo.Finalize(ctx, id, userID, status)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	rem, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("reminder not found")
	}
	if err != nil {
		return err
	}
	if rem.AssignedTo != userID {
		return apperr.Forbidden("reminder belongs to another user")
	}
	return apperr.Conflict(fmt.Sprintf("reminder is already %s", rem.Status))
}

func (s *Service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("reminder not found")
		}
		return err
	}
	return nil
}
