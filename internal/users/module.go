// Package users provides the user directory bounded context module.
package users

import (
	apphttp "pipeline_crm_backend/internal/http"
	"pipeline_crm_backend/internal/users/handler"
	"pipeline_crm_backend/internal/users/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the users bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	repo    *repository.Repository
}

// NewModule creates and initializes the users module.
func NewModule(pool *pgxpool.Pool) *Module {
	repo := repository.New(pool)
	return &Module{
		handler: handler.New(repo),
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "users"
}

// Repository returns the user store for cross-module lookups.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts user routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/users")
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
