// Package tasks provides the tasks bounded context module. Tasks are created
// by the transition engine; this module exposes the owner-facing read and
// status update API.
package tasks

import (
	apphttp "pipeline_crm_backend/internal/http"
	"pipeline_crm_backend/internal/tasks/handler"
	"pipeline_crm_backend/internal/tasks/repository"
	"pipeline_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the tasks bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule creates and initializes the tasks module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator) *Module {
	repo := repository.New(pool)
	return &Module{handler: handler.New(repo, val)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "tasks"
}

// RegisterRoutes mounts task routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/tasks")
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
