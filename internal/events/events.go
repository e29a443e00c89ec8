// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"pipeline_crm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadStageChanged is published after a stage transition has been committed.
// The transactional side effects (task, notification, audit log) are created
// inside the transition itself; this event exists for observers that sit
// outside the invariant chain, such as logging.
type LeadStageChanged struct {
	BaseEvent
	LeadID     uuid.UUID  `json:"leadId"`
	LeadName   string     `json:"leadName"`
	FromStage  string     `json:"fromStage"`
	ToStage    string     `json:"toStage"`
	NewTeam    string     `json:"newTeam"`
	AssignedTo *uuid.UUID `json:"assignedTo,omitempty"`
	ActorID    uuid.UUID  `json:"actorId"`
}

func (e LeadStageChanged) EventName() string { return "leads.stage.changed" }

// =============================================================================
// Reminder Domain Events
// =============================================================================

// ReminderCreated is published when a follow-up reminder is created.
// The notification module subscribes to deliver the in-app notification
// (and optional email mirror) to the assignee.
type ReminderCreated struct {
	BaseEvent
	ReminderID uuid.UUID `json:"reminderId"`
	LeadID     uuid.UUID `json:"leadId"`
	LeadName   string    `json:"leadName"`
	AssignedTo uuid.UUID `json:"assignedTo"`
	Rule       string    `json:"rule"`
	Message    string    `json:"message"`
}

func (e ReminderCreated) EventName() string { return "reminders.created" }

// =============================================================================
// Revenue Domain Events
// =============================================================================

// AdvanceRecorded is published when a positive advance-amount delta has been
// booked as revenue for the lead generator.
type AdvanceRecorded struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	UserID uuid.UUID `json:"userId"`
	Amount string    `json:"amount"`
	Month  int       `json:"month"`
	Year   int       `json:"year"`
}

func (e AdvanceRecorded) EventName() string { return "revenue.advance.recorded" }
