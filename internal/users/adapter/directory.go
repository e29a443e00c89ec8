// Package adapter bridges the users store to consumer-facing interfaces in
// other bounded contexts.
package adapter

import (
	"context"

	"pipeline_crm_backend/internal/notifications/inapp"
	"pipeline_crm_backend/internal/users/repository"

	"github.com/google/uuid"
)

// Directory adapts the users repository to the notification module's
// UserDirectory interface.
type Directory struct {
	repo *repository.Repository
}

func NewDirectory(repo *repository.Repository) *Directory {
	return &Directory{repo: repo}
}

func (d *Directory) GetRecipient(ctx context.Context, userID uuid.UUID) (inapp.Recipient, error) {
	user, err := d.repo.GetByID(ctx, userID)
	if err != nil {
		return inapp.Recipient{}, err
	}
	return inapp.Recipient{Email: user.Email, Username: user.Username}, nil
}

var _ inapp.UserDirectory = (*Directory)(nil)
