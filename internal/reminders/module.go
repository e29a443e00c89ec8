// Package reminders provides the follow-up reminder bounded context module.
// It wires the stagnation monitor, the sweep rules and the reminders HTTP API.
package reminders

import (
	"pipeline_crm_backend/internal/events"
	apphttp "pipeline_crm_backend/internal/http"
	"pipeline_crm_backend/internal/reminders/handler"
	"pipeline_crm_backend/internal/reminders/monitor"
	"pipeline_crm_backend/internal/reminders/repository"
	"pipeline_crm_backend/internal/scheduler"
	"pipeline_crm_backend/platform/logger"
	"pipeline_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the reminders bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	monitor *monitor.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the reminders module. A nil sched
// disables the queue-backed sweep trigger.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, sched scheduler.ReminderScheduler, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := monitor.New(repo, eventBus, log)

	return &Module{
		handler: handler.New(svc, sched, val),
		monitor: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "reminders"
}

// Monitor returns the reminder monitor for the scheduler worker.
func (m *Module) Monitor() *monitor.Service {
	return m.monitor
}

// Repository returns the reminder store. The scheduler uses it to enumerate
// assignees for the stagnation fan-out.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts reminder routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/reminders")
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
