// Package leads provides the lead pipeline bounded context module.
// It wires the stage-transition engine, lead management and the leads HTTP API.
package leads

import (
	"pipeline_crm_backend/internal/events"
	apphttp "pipeline_crm_backend/internal/http"
	"pipeline_crm_backend/internal/leads/handler"
	"pipeline_crm_backend/internal/leads/management"
	"pipeline_crm_backend/internal/leads/repository"
	"pipeline_crm_backend/internal/leads/transition"
	revenuerepo "pipeline_crm_backend/internal/revenue/repository"
	"pipeline_crm_backend/platform/logger"
	"pipeline_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	management *management.Service
	transition *transition.Service
	repo       *repository.Repository
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	revRepo := revenuerepo.New(pool)

	transitionSvc := transition.New(repo, eventBus, log)
	mgmtSvc := management.New(repo, revRepo, eventBus, log)

	h := handler.New(mgmtSvc, transitionSvc, val)

	return &Module{
		handler:    h,
		management: mgmtSvc,
		transition: transitionSvc,
		repo:       repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// TransitionService returns the stage-transition engine for external use.
func (m *Module) TransitionService() *transition.Service {
	return m.transition
}

// ManagementService returns the lead management service for external use.
func (m *Module) ManagementService() *management.Service {
	return m.management
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leadsGroup := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(leadsGroup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
