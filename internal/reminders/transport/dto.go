// Package transport defines request and response DTOs for the reminders HTTP API.
package transport

import (
	"time"

	"pipeline_crm_backend/internal/reminders/repository"

	"github.com/google/uuid"
)

type CreateReminderRequest struct {
	LeadID  uuid.UUID `json:"leadId" validate:"required"`
	DueDate time.Time `json:"dueDate"`
	Message string    `json:"message" validate:"required,max=1000"`
}

type ReminderResponse struct {
	ID           uuid.UUID `json:"id"`
	LeadID       uuid.UUID `json:"leadId"`
	AssignedTo   uuid.UUID `json:"assignedTo"`
	ReminderType string    `json:"reminderType"`
	Status       string    `json:"status"`
	Rule         string    `json:"rule"`
	DueDate      time.Time `json:"dueDate"`
	Message      string    `json:"message"`
	IsRead       bool      `json:"isRead"`
	CreatedAt    time.Time `json:"createdAt"`
}

func ToReminderResponse(rem repository.Reminder) ReminderResponse {
	return ReminderResponse{
		ID:           rem.ID,
		LeadID:       rem.LeadID,
		AssignedTo:   rem.AssignedTo,
		ReminderType: rem.ReminderType,
		Status:       rem.Status,
		Rule:         rem.Rule,
		DueDate:      rem.DueDate,
		Message:      rem.Message,
		IsRead:       rem.IsRead,
		CreatedAt:    rem.CreatedAt,
	}
}

func ToReminderResponses(reminders []repository.Reminder) []ReminderResponse {
	out := make([]ReminderResponse, 0, len(reminders))
	for _, rem := range reminders {
		out = append(out, ToReminderResponse(rem))
	}
	return out
}

type StagnationCheckResponse struct {
	Created int `json:"created"`
}

// TriggerSweepRequest targets an optional single assignee; empty body queues
// the full sweep.
type TriggerSweepRequest struct {
	UserID *uuid.UUID `json:"userId"`
}

type SweepQueuedResponse struct {
	Job string `json:"job"`
}
