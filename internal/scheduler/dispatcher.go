package scheduler

import (
	"context"

	"artisan_dispatch_backend/platform/logger"

	"github.com/robfig/cron/v3"
)

// Schedules holds the cron expressions for the maintenance sweeps.
type Schedules struct {
	Retry        string
	FollowUps    string
	ExpireOffers string
	Rescore      string
}

// DefaultSchedules runs the delivery-critical sweeps every minute, the
// follow-ups once a day mid-morning and the rescore hourly.
func DefaultSchedules() Schedules {
	return Schedules{
		Retry:        "* * * * *",
		FollowUps:    "0 10 * * *",
		ExpireOffers: "* * * * *",
		Rescore:      "0 * * * *",
	}
}

// Dispatcher enqueues sweep tasks on a schedule. It only produces tasks;
// the worker consumes them, so several dispatcher replicas stay safe as
// long as the sweeps themselves are claim-based.
type Dispatcher struct {
	cron   *cron.Cron
	client *Client
	log    *logger.Logger
}

// NewDispatcher creates the sweep dispatcher.
func NewDispatcher(client *Client, schedules Schedules, log *logger.Logger) (*Dispatcher, error) {
	c := cron.New()
	d := &Dispatcher{cron: c, client: client, log: log}

	entries := []struct {
		expr string
		task string
	}{
		{schedules.Retry, TaskSweepRetry},
		{schedules.FollowUps, TaskSweepFollowUps},
		{schedules.ExpireOffers, TaskSweepExpireOffers},
		{schedules.Rescore, TaskSweepRescore},
	}
	for _, entry := range entries {
		task := entry.task
		if _, err := c.AddFunc(entry.expr, func() { d.enqueue(task) }); err != nil {
			return nil, err
		}
	}

	return d, nil
}

func (d *Dispatcher) enqueue(task string) {
	if err := d.client.EnqueueSweep(context.Background(), task); err != nil {
		d.log.Error("failed to enqueue sweep", "task", task, "error", err)
	}
}

// Run starts the schedule and blocks until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	d.cron.Start()
	<-ctx.Done()
	<-d.cron.Stop().Done()
}
