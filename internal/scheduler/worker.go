package scheduler

import (
	"context"
	"fmt"
	"time"

	"artisan_dispatch_backend/internal/cron"
	"artisan_dispatch_backend/internal/leads/repository"
	"artisan_dispatch_backend/internal/workflow"
	"artisan_dispatch_backend/platform/config"
	"artisan_dispatch_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// LeadReader is the slice of the lead repository the dispatch worker uses.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	MarkNotificationSent(ctx context.Context, id uuid.UUID) error
	MarkNotificationFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// OfferDispatcher delivers the offer notification for an assignment.
type OfferDispatcher interface {
	DispatchOffer(ctx context.Context, assignmentID uuid.UUID) error
}

// Worker consumes dispatch and sweep tasks from the shared queue.
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	leads   LeadReader
	engine  cron.Trigger
	offers  OfferDispatcher
	monitor *cron.Monitor
	jobs    map[string]cron.JobFunc
	log     *logger.Logger
}

// NewWorker creates the queue worker.
func NewWorker(cfg config.SchedulerConfig, leads LeadReader, engine cron.Trigger, offers OfferDispatcher, monitor *cron.Monitor, jobs map[string]cron.JobFunc, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		leads:   leads,
		engine:  engine,
		offers:  offers,
		monitor: monitor,
		jobs:    jobs,
		log:     log,
	}

	mux.HandleFunc(TaskLeadDispatch, w.handleLeadDispatch)
	mux.HandleFunc(TaskOfferDispatch, w.handleOfferDispatch)
	w.registerSweep(TaskSweepRetry, cron.JobRetryNotifications)
	w.registerSweep(TaskSweepFollowUps, cron.JobFollowUps)
	w.registerSweep(TaskSweepExpireOffers, cron.JobExpireOffers)
	w.registerSweep(TaskSweepRescore, cron.JobRescore)

	return w, nil
}

func (w *Worker) registerSweep(taskName, jobName string) {
	job, ok := w.jobs[jobName]
	if !ok {
		return
	}
	w.mux.HandleFunc(taskName, func(ctx context.Context, _ *asynq.Task) error {
		_, err := w.monitor.Run(ctx, jobName, job)
		return err
	})
}

// handleLeadDispatch performs the initial delivery attempt for a lead.
// Failures are recorded on the lead and left to the retry sweep, never to
// the queue's own retry mechanism.
func (w *Worker) handleLeadDispatch(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadDispatchPayload(task)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}

	lead, err := w.leads.GetByID(ctx, leadID)
	if err != nil {
		return err
	}
	if lead.NotificationStatus == repository.NotificationSent {
		return nil
	}

	event := workflow.LeadEvent{
		LeadID:      lead.ID.String(),
		Phone:       lead.ClientPhone,
		UrgencyType: "standard",
		Description: lead.Description,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}
	if lead.Urgent {
		event.UrgencyType = "urgent"
	}
	if lead.Address != nil {
		event.Address = *lead.Address
	}

	if err := w.engine.TriggerLeadNotification(ctx, event); err != nil {
		w.log.DispatchError(lead.ID.String(), "workflow", lead.NotificationAttempts+1, err)
		if merr := w.leads.MarkNotificationFailed(ctx, lead.ID, err.Error()); merr != nil {
			w.log.DatabaseError("mark notification failed", merr)
		}
		return nil
	}

	return w.leads.MarkNotificationSent(ctx, lead.ID)
}

// handleOfferDispatch delivers the offer notification for an assignment.
// The service records delivery failures on the lead itself.
func (w *Worker) handleOfferDispatch(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseOfferDispatchPayload(task)
	if err != nil {
		return err
	}

	assignmentID, err := uuid.Parse(payload.AssignmentID)
	if err != nil {
		return err
	}

	if err := w.offers.DispatchOffer(ctx, assignmentID); err != nil {
		w.log.Error("offer dispatch failed", "assignment_id", assignmentID.String(), "error", err)
	}
	return nil
}

// Run blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
