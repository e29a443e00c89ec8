// Package auth provides the authentication bounded context module.
package auth

import (
	"pipeline_crm_backend/internal/auth/handler"
	"pipeline_crm_backend/internal/auth/service"
	"pipeline_crm_backend/internal/email"
	apphttp "pipeline_crm_backend/internal/http"
	"pipeline_crm_backend/internal/users/repository"
	"pipeline_crm_backend/platform/config"
	"pipeline_crm_backend/platform/logger"
	"pipeline_crm_backend/platform/validator"
)

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule creates and initializes the auth module. It shares the users
// repository with the users module.
func NewModule(users *repository.Repository, cfg config.AuthServiceConfig, mail email.Sender, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(users, cfg, mail, log)
	return &Module{handler: handler.New(svc, val)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// RegisterRoutes mounts auth routes. They are public but sit behind the
// stricter auth rate limiter.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/auth")
	if ctx.AuthRateLimiter != nil {
		group.Use(ctx.AuthRateLimiter.RateLimit())
	}
	m.handler.RegisterRoutes(group)
}

var _ apphttp.Module = (*Module)(nil)
