package inapp

import (
	"context"
	"errors"

	"pipeline_crm_backend/internal/email"
	"pipeline_crm_backend/platform/apperr"
	"pipeline_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// Recipient is the contact data needed to mirror a notification to email.
type Recipient struct {
	Email    string
	Username string
}

// UserDirectory resolves a recipient's contact details.
type UserDirectory interface {
	GetRecipient(ctx context.Context, userID uuid.UUID) (Recipient, error)
}

type Service struct {
	repo   *Repository
	users  UserDirectory
	sender email.Sender
	log    *logger.Logger
}

func NewService(repo *Repository, users UserDirectory, sender email.Sender, log *logger.Logger) *Service {
	return &Service{repo: repo, users: users, sender: sender, log: log}
}

// Deliver creates the in-app notification and mirrors it to email. Email
// failure is logged but never fails delivery; the in-app row is the record.
func (s *Service) Deliver(ctx context.Context, params CreateParams, leadName string) error {
	if _, err := s.repo.Create(ctx, params); err != nil {
		return err
	}

	recipient, err := s.users.GetRecipient(ctx, params.RecipientID)
	if err != nil {
		if s.log != nil {
			s.log.Error("notification recipient lookup failed", "error", err, "userId", params.RecipientID)
		}
		return nil
	}
	if recipient.Email == "" {
		return nil
	}

	if err := s.sender.SendReminderEmail(ctx, recipient.Email, leadName, params.Message); err != nil && s.log != nil {
		s.log.Error("notification email mirror failed", "error", err, "userId", params.RecipientID)
	}
	return nil
}

// EmailAssignment mirrors a lead-assignment notification to email. The in-app
// row is written inside the transition transaction, so this only sends mail;
// failures are logged and never propagated.
func (s *Service) EmailAssignment(ctx context.Context, recipientID uuid.UUID, leadName, stageDisplay string) error {
	recipient, err := s.users.GetRecipient(ctx, recipientID)
	if err != nil {
		if s.log != nil {
			s.log.Error("assignment recipient lookup failed", "error", err, "userId", recipientID)
		}
		return nil
	}
	if recipient.Email == "" {
		return nil
	}

	if err := s.sender.SendAssignmentEmail(ctx, recipient.Email, leadName, stageDisplay); err != nil && s.log != nil {
		s.log.Error("assignment email failed", "error", err, "userId", recipientID)
	}
	return nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, limit int) ([]Notification, error) {
	return s.repo.ListByRecipient(ctx, userID, limit)
}

func (s *Service) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.repo.MarkRead(ctx, id, userID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("notification not found")
		}
		return err
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
