// Package notifications provides the notification bounded context module.
// Transition notifications are written by the engine inside the lead
// transaction; reminder notifications arrive through the event bus so the
// monitor never blocks on delivery.
package notifications

import (
	"context"

	"pipeline_crm_backend/internal/email"
	"pipeline_crm_backend/internal/events"
	apphttp "pipeline_crm_backend/internal/http"
	"pipeline_crm_backend/internal/leads/domain"
	"pipeline_crm_backend/internal/notifications/handler"
	"pipeline_crm_backend/internal/notifications/inapp"
	"pipeline_crm_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the notifications bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *inapp.Service
}

// NewModule creates the notifications module and subscribes it to reminder
// events.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, users inapp.UserDirectory, sender email.Sender, log *logger.Logger) *Module {
	repo := inapp.NewRepository(pool)
	svc := inapp.NewService(repo, users, sender, log)

	eventBus.Subscribe(events.ReminderCreated{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.ReminderCreated)
		if !ok {
			return nil
		}
		leadID := e.LeadID
		return svc.Deliver(ctx, inapp.CreateParams{
			RecipientID: e.AssignedTo,
			Message:     e.Message,
			LeadID:      &leadID,
		}, e.LeadName)
	}))

	// The assignment notification row is written inside the transition
	// transaction; this subscriber only mirrors it to email.
	eventBus.Subscribe(events.LeadStageChanged{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadStageChanged)
		if !ok || e.AssignedTo == nil {
			return nil
		}
		return svc.EmailAssignment(ctx, *e.AssignedTo, e.LeadName, domain.Stage(e.ToStage).DisplayName())
	}))

	return &Module{
		handler: handler.New(svc),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notifications"
}

// RegisterRoutes mounts notification routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/notifications")
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
