// Package transport defines request and response DTOs for the leads HTTP API.
package transport

import (
	"time"

	"pipeline_crm_backend/internal/leads/repository"

	"github.com/google/uuid"
)

type CreateLeadRequest struct {
	FirstName          string     `json:"firstName" validate:"required,max=100"`
	LastName           string     `json:"lastName" validate:"required,max=100"`
	Email              string     `json:"email" validate:"required,email"`
	Phone              string     `json:"phone" validate:"required,max=32"`
	CompanyName        *string    `json:"companyName" validate:"omitempty,max=200"`
	TechRequirements   *string    `json:"techRequirements"`
	LeadGenerator      *uuid.UUID `json:"leadGenerator"`
	ProjectAmountCents int64      `json:"projectAmountCents" validate:"gte=0"`
}

type UpdateLeadRequest struct {
	FirstName        *string `json:"firstName" validate:"omitempty,max=100"`
	LastName         *string `json:"lastName" validate:"omitempty,max=100"`
	Email            *string `json:"email" validate:"omitempty,email"`
	Phone            *string `json:"phone" validate:"omitempty,max=32"`
	CompanyName      *string `json:"companyName" validate:"omitempty,max=200"`
	TechRequirements *string `json:"techRequirements"`
}

type ChangeStageRequest struct {
	Stage string `json:"stage" validate:"required"`
	Notes string `json:"notes" validate:"max=1000"`
}

type UpdateFinancialsRequest struct {
	ProjectAmountCents *int64 `json:"projectAmountCents" validate:"omitempty,gte=0"`
	AdvanceAmountCents *int64 `json:"advanceAmountCents" validate:"omitempty,gte=0"`
}

type LeadResponse struct {
	ID                 uuid.UUID  `json:"id"`
	FirstName          string     `json:"firstName"`
	LastName           string     `json:"lastName"`
	Email              string     `json:"email"`
	Phone              string     `json:"phone"`
	CompanyName        *string    `json:"companyName,omitempty"`
	TechRequirements   *string    `json:"techRequirements,omitempty"`
	Stage              string     `json:"stage"`
	StageDisplay       string     `json:"stageDisplay"`
	AssignedTeam       string     `json:"assignedTeam"`
	AssignedTo         *uuid.UUID `json:"assignedTo,omitempty"`
	LeadGenerator      *uuid.UUID `json:"leadGenerator,omitempty"`
	ProjectAmountCents int64      `json:"projectAmountCents"`
	AdvanceAmountCents int64      `json:"advanceAmountCents"`
	LastContacted      *time.Time `json:"lastContacted,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

func ToLeadResponse(lead repository.Lead) LeadResponse {
	return LeadResponse{
		ID:                 lead.ID,
		FirstName:          lead.FirstName,
		LastName:           lead.LastName,
		Email:              lead.Email,
		Phone:              lead.Phone,
		CompanyName:        lead.CompanyName,
		TechRequirements:   lead.TechRequirements,
		Stage:              string(lead.Stage),
		StageDisplay:       lead.Stage.DisplayName(),
		AssignedTeam:       string(lead.AssignedTeam),
		AssignedTo:         lead.AssignedTo,
		LeadGenerator:      lead.LeadGenerator,
		ProjectAmountCents: lead.ProjectAmountCents,
		AdvanceAmountCents: lead.AdvanceAmountCents,
		LastContacted:      lead.LastContacted,
		CreatedAt:          lead.CreatedAt,
		UpdatedAt:          lead.UpdatedAt,
	}
}

func ToLeadResponses(leads []repository.Lead) []LeadResponse {
	out := make([]LeadResponse, 0, len(leads))
	for _, lead := range leads {
		out = append(out, ToLeadResponse(lead))
	}
	return out
}

type AuditLogResponse struct {
	ID        uuid.UUID  `json:"id"`
	LeadID    uuid.UUID  `json:"leadId"`
	ActorID   *uuid.UUID `json:"actorId,omitempty"`
	Action    string     `json:"action"`
	FromStage string     `json:"fromStage"`
	ToStage   string     `json:"toStage"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

func ToAuditLogResponses(logs []repository.AuditLog) []AuditLogResponse {
	out := make([]AuditLogResponse, 0, len(logs))
	for _, entry := range logs {
		out = append(out, AuditLogResponse{
			ID:        entry.ID,
			LeadID:    entry.LeadID,
			ActorID:   entry.ActorID,
			Action:    entry.Action,
			FromStage: string(entry.FromStage),
			ToStage:   string(entry.ToStage),
			Notes:     entry.Notes,
			CreatedAt: entry.CreatedAt,
		})
	}
	return out
}

type StageInfo struct {
	Value   string `json:"value"`
	Display string `json:"display"`
	Team    string `json:"team"`
}

type CanEditResponse struct {
	CanEdit bool `json:"canEdit"`
}
