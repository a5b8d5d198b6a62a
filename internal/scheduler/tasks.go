package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TaskLeadDispatch delivers the initial notification for a freshly created
// lead through the workflow engine.
const TaskLeadDispatch = "leads.dispatch"

// TaskOfferDispatch delivers the offer notification for a new assignment on
// its chosen channel.
const TaskOfferDispatch = "assignments.dispatch"

// Sweep tasks enqueued on a schedule. Their payloads are empty; the job name
// selects the sweep.
const (
	TaskSweepRetry        = "sweep.retry-notifications"
	TaskSweepFollowUps    = "sweep.follow-ups"
	TaskSweepExpireOffers = "sweep.expire-offers"
	TaskSweepRescore      = "sweep.rescore"
)

type LeadDispatchPayload struct {
	LeadID string `json:"leadId"`
}

type OfferDispatchPayload struct {
	AssignmentID string `json:"assignmentId"`
}

func NewLeadDispatchTask(payload LeadDispatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadDispatch, data), nil
}

func ParseLeadDispatchPayload(task *asynq.Task) (LeadDispatchPayload, error) {
	var payload LeadDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadDispatchPayload{}, err
	}
	return payload, nil
}

func NewOfferDispatchTask(payload OfferDispatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOfferDispatch, data), nil
}

func ParseOfferDispatchPayload(task *asynq.Task) (OfferDispatchPayload, error) {
	var payload OfferDispatchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return OfferDispatchPayload{}, err
	}
	return payload, nil
}

func NewSweepTask(name string) *asynq.Task {
	return asynq.NewTask(name, nil)
}
