package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"artisan_dispatch_backend/internal/assignments"
	"artisan_dispatch_backend/internal/cron"
	"artisan_dispatch_backend/internal/email"
	"artisan_dispatch_backend/internal/events"
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
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()
	engine := workflow.NewClient(cfg, log)

	photoStorage, err := storage.NewService(cfg)
	if err != nil {
		log.Error("failed to initialize photo storage", "error", err)
		panic("failed to initialize photo storage: " + err.Error())
	}

	var sender *email.Sender
	if cfg.GetEmailEnabled() {
		sender = email.NewSender(cfg)
	}

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

	taskClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task client", "error", err)
		panic("failed to initialize task client: " + err.Error())
	}
	defer func() { _ = taskClient.Close() }()

	dispatcher, err := scheduler.NewDispatcher(taskClient, scheduler.DefaultSchedules(), log)
	if err != nil {
		log.Error("failed to initialize sweep dispatcher", "error", err)
		panic("failed to initialize sweep dispatcher: " + err.Error())
	}

	worker, err := scheduler.NewWorker(
		cfg,
		leadsModule.Repository(),
		engine,
		assignmentsModule.Service(),
		cronModule.Monitor(),
		cronModule.Jobs(),
		log,
	)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dispatcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})

	_ = g.Wait()
	log.Info("scheduler stopped")
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
