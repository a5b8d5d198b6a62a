package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"artisan_dispatch_backend/internal/assignments"
	"artisan_dispatch_backend/internal/cron"
	"artisan_dispatch_backend/internal/email"
	"artisan_dispatch_backend/internal/events"
	apphttp "artisan_dispatch_backend/internal/http"
	"artisan_dispatch_backend/internal/http/router"
	"artisan_dispatch_backend/internal/leads"
	"artisan_dispatch_backend/internal/scheduler"
	"artisan_dispatch_backend/internal/storage"
	"artisan_dispatch_backend/internal/workflow"
	"artisan_dispatch_backend/platform/config"
	"artisan_dispatch_backend/platform/db"
	"artisan_dispatch_backend/platform/logger"
	"artisan_dispatch_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	engine := workflow.NewClient(cfg, log)

	photoStorage, err := storage.NewService(cfg)
	if err != nil {
		log.Error("failed to initialize photo storage", "error", err)
		panic("failed to initialize photo storage: " + err.Error())
	}
	if photoStorage != nil {
		if err := withRetry(ctx, log, "ensure photo bucket", 5, 2*time.Second, func() error {
			return photoStorage.EnsureBucketExists(ctx)
		}); err != nil {
			log.Error("failed to ensure photo bucket exists", "error", err)
			panic("failed to ensure photo bucket exists: " + err.Error())
		}
		log.Info("photo storage initialized", "bucket", cfg.GetMinioBucketLeadPhotos())
	}

	var sender *email.Sender
	if cfg.GetEmailEnabled() {
		sender = email.NewSender(cfg)
		log.Info("email sender initialized", "host", cfg.GetSMTPHost())
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	leadsModule := leads.NewModule(pool, eventBus, val, log)

	assignmentsModule, err := assignments.NewModule(pool, eventBus, val, cfg, engine, photoStorage, sender, log)
	if err != nil {
		log.Error("failed to initialize assignments module", "error", err)
		panic("failed to initialize assignments module: " + err.Error())
	}

	cronModule, err := cron.NewModule(pool, leadsModule.Repository(), assignmentsModule.Repository(), engine, cfg, log)
	if err != nil {
		log.Error("failed to initialize cron module", "error", err)
		panic("failed to initialize cron module: " + err.Error())
	}
	defer func() { _ = cronModule.Close() }()

	// Dispatch tasks ride the queue when Redis is configured; without it the
	// events simply have no subscriber and delivery relies on the cron
	// endpoints alone.
	if cfg.GetRedisURL() != "" {
		taskClient, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Error("failed to initialize task client", "error", err)
			panic("failed to initialize task client: " + err.Error())
		}
		defer func() { _ = taskClient.Close() }()
		scheduler.RegisterSubscribers(eventBus, taskClient, log)
	} else {
		log.Warn("REDIS_URL not configured; queued dispatch disabled")
	}

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	modules := []apphttp.Module{
		leadsModule,
		assignmentsModule,
		cronModule,
	}

	httpEngine := router.New(cfg.Env, pool, modules, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpEngine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return lastErr
}
