// Package revenue provides the revenue reporting bounded context module.
// Revenue records are written by the leads management service inside the lead
// transaction; this module exposes the read side.
package revenue

import (
	apphttp "pipeline_crm_backend/internal/http"
	"pipeline_crm_backend/internal/revenue/handler"
	"pipeline_crm_backend/internal/revenue/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the revenue bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	repo    *repository.Repository
}

// NewModule creates and initializes the revenue module.
func NewModule(pool *pgxpool.Pool) *Module {
	repo := repository.New(pool)
	return &Module{
		handler: handler.New(repo),
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "revenue"
}

// Repository returns the revenue store for cross-module writes.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts revenue routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/revenue")
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
