// Package scheduler bridges domain events and the asynq task queue: HTTP
// handlers publish events, the subscribers here turn them into queue tasks,
// and the worker performs the actual delivery out of band.
package scheduler

import (
	"context"
	"fmt"

	"artisan_dispatch_backend/internal/events"
	"artisan_dispatch_backend/platform/logger"
)

// RegisterSubscribers hooks the dispatch tasks onto the domain events.
func RegisterSubscribers(bus events.Bus, client *Client, log *logger.Logger) {
	bus.Subscribe(events.LeadCreated{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		created, ok := event.(events.LeadCreated)
		if !ok {
			return fmt.Errorf("unexpected event type %T", event)
		}
		return client.EnqueueLeadDispatch(ctx, LeadDispatchPayload{LeadID: created.LeadID.String()})
	}))

	bus.Subscribe(events.AssignmentOffered{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		offered, ok := event.(events.AssignmentOffered)
		if !ok {
			return fmt.Errorf("unexpected event type %T", event)
		}
		return client.EnqueueOfferDispatch(ctx, OfferDispatchPayload{AssignmentID: offered.AssignmentID.String()})
	}))

	log.Info("scheduler subscribers registered")
}
