// Package assignments provides the assignment lifecycle bounded context:
// offering leads to artisans, acceptance, grace-period cancellation and
// notification delivery tracking.
package assignments

import (
	"artisan_dispatch_backend/internal/assignments/handler"
	"artisan_dispatch_backend/internal/assignments/preparer"
	"artisan_dispatch_backend/internal/assignments/repository"
	"artisan_dispatch_backend/internal/assignments/service"
	"artisan_dispatch_backend/internal/assignments/token"
	"artisan_dispatch_backend/internal/email"
	"artisan_dispatch_backend/internal/events"
	apphttp "artisan_dispatch_backend/internal/http"
	"artisan_dispatch_backend/internal/storage"
	"artisan_dispatch_backend/internal/workflow"
	"artisan_dispatch_backend/platform/config"
	"artisan_dispatch_backend/platform/logger"
	"artisan_dispatch_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the assignments bounded context module implementing http.Module.
type Module struct {
	handler  *handler.Handler
	service  *service.Service
	repo     *repository.Repository
	callback config.CallbackConfig
}

// NewModule wires the assignments module. The storage service may be nil when
// no object store is configured; payloads are then built without photo links.
func NewModule(
	pool *pgxpool.Pool,
	bus events.Bus,
	val *validator.Validator,
	cfg *config.Config,
	engine *workflow.Client,
	photos *storage.Service,
	sender *email.Sender,
	log *logger.Logger,
) (*Module, error) {
	repo := repository.New(pool)
	signer := token.NewSigner(cfg)

	templates, err := preparer.LoadTemplates(cfg.GetTemplatesPath())
	if err != nil {
		return nil, err
	}

	prep := preparer.New(repo, signer, templates, photos)
	svc := service.New(repo, prep, engine, sender, bus, cfg, log)
	h := handler.New(svc, val)

	return &Module{handler: h, service: svc, repo: repo, callback: cfg}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "assignments"
}

// Service returns the service layer for the scheduler's dispatch workers.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for the cron sweeps.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts assignment routes and the delivery-status webhook.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/assignments"))
	m.handler.RegisterWebhookRoutes(ctx.V1.Group("/webhooks"), m.callback)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
