// Package cron provides the scheduled maintenance jobs: notification retry,
// satisfaction follow-ups, stale-offer expiry and lead rescoring, each
// wrapped in an audited monitor.
package cron

import (
	cronrepo "artisan_dispatch_backend/internal/cron/repository"
	apphttp "artisan_dispatch_backend/internal/http"
	leadrepo "artisan_dispatch_backend/internal/leads/repository"
	"artisan_dispatch_backend/internal/workflow"
	"artisan_dispatch_backend/platform/config"
	"artisan_dispatch_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the scheduled jobs module implementing http.Module.
type Module struct {
	handler *Handler
	monitor *Monitor

	retry    *RetryCoordinator
	followUp *FollowUpJob
	stale    *StaleOfferJob
	rescore  *RescoreJob

	cronCfg config.CronConfig
	lease   *RedisLease
}

// NewModule wires the scheduled jobs. The assignment store is injected by
// the caller so the cron module never reaches into another module's pool
// wiring.
func NewModule(
	pool *pgxpool.Pool,
	leads *leadrepo.Repository,
	offers StaleOfferStore,
	engine *workflow.Client,
	cfg *config.Config,
	log *logger.Logger,
) (*Module, error) {
	lease, err := NewRedisLease(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}

	monitor := NewMonitor(cronrepo.New(pool), log)
	retry := NewRetryCoordinator(leads, engine, lease, log)
	followUp := NewFollowUpJob(leads, engine, log)
	stale := NewStaleOfferJob(offers, log)
	rescore := NewRescoreJob(leads, log)

	return &Module{
		handler:  NewHandler(monitor, retry, followUp, stale, rescore, log),
		monitor:  monitor,
		retry:    retry,
		followUp: followUp,
		stale:    stale,
		rescore:  rescore,
		cronCfg:  cfg,
		lease:    lease,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "cron"
}

// Monitor returns the audited runner for the scheduler worker.
func (m *Module) Monitor() *Monitor {
	return m.monitor
}

// Jobs returns the audited job functions keyed by job name, for callers
// that run on a schedule instead of over HTTP.
func (m *Module) Jobs() map[string]JobFunc {
	return map[string]JobFunc{
		JobRetryNotifications: m.retry.Run,
		JobFollowUps:          m.followUp.Run,
		JobExpireOffers:       m.stale.Run,
		JobRescore:            m.rescore.Run,
	}
}

// Close releases the dispatch lease connection.
func (m *Module) Close() error {
	return m.lease.Close()
}

// RegisterRoutes mounts the job endpoints on the cron group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Cron, m.cronCfg)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
