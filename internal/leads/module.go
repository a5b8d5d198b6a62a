// Package leads provides the lead intake bounded context module.
package leads

import (
	"artisan_dispatch_backend/internal/events"
	apphttp "artisan_dispatch_backend/internal/http"
	"artisan_dispatch_backend/internal/leads/handler"
	"artisan_dispatch_backend/internal/leads/repository"
	"artisan_dispatch_backend/internal/leads/service"
	"artisan_dispatch_backend/platform/logger"
	"artisan_dispatch_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc, repo: repo}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for the cron sweeps, which depend on it
// through their own narrow store interfaces.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts lead routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	publicGroup := ctx.V1.Group("/public/leads")
	publicGroup.Use(ctx.SubmissionRateLimiter.RateLimit())
	m.handler.RegisterPublicRoutes(publicGroup)

	m.handler.RegisterRoutes(ctx.V1.Group("/leads"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
