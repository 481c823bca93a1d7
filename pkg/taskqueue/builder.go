package taskqueue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TaskOption customises NewTask.
type TaskOption func(*taskOptions)

type taskOptions struct {
	id               string
	externalTaskID   *string
	externalCallback *string
	name             *string
	priority         *int64
	workerID         string
	bookmarked       bool
	status           Status
	now              func() time.Time
}

// WithID sets a caller-generated task id. Empty values keep the generated one.
func WithID(id string) TaskOption {
	return func(o *taskOptions) {
		if id != "" {
			o.id = id
		}
	}
}

// WithExternalTaskID correlates the task with an upstream API request.
func WithExternalTaskID(id string) TaskOption {
	return func(o *taskOptions) {
		if id != "" {
			o.externalTaskID = &id
		}
	}
}

// WithExternalCallback sets the upstream callback address.
func WithExternalCallback(callback string) TaskOption {
	return func(o *taskOptions) {
		if callback != "" {
			o.externalCallback = &callback
		}
	}
}

func WithName(name string) TaskOption {
	return func(o *taskOptions) {
		if name != "" {
			o.name = &name
		}
	}
}

// WithPriority overrides the enqueue-time default priority.
func WithPriority(priority int64) TaskOption {
	return func(o *taskOptions) {
		o.priority = &priority
	}
}

// WithWorkerID assigns the task to a worker identity. When omitted the queue
// stamps its own identity on enqueue.
func WithWorkerID(workerID string) TaskOption {
	return func(o *taskOptions) {
		o.workerID = workerID
	}
}

func WithBookmarked(bookmarked bool) TaskOption {
	return func(o *taskOptions) {
		o.bookmarked = bookmarked
	}
}

// WithStatus overrides the initial pending status.
func WithStatus(status Status) TaskOption {
	return func(o *taskOptions) {
		if status != "" {
			o.status = status
		}
	}
}

// WithClock sets the time source used for the default priority and timestamps.
func WithClock(now func() time.Time) TaskOption {
	return func(o *taskOptions) {
		if now != nil {
			o.now = now
		}
	}
}

// NewTask builds a validated task. Defaults, each overridable by an option:
//   - ID: random UUID
//   - Priority: creation time in milliseconds (FIFO)
//   - Status: pending
//   - Bookmarked: false
//   - CreatedAt, UpdatedAt: now, UTC
func NewTask(typ Type, params json.RawMessage, binaryParams []byte, opts ...TaskOption) (*Task, error) {
	o := &taskOptions{
		status: StatusPending,
		now:    utcNow,
	}
	for _, opt := range opts {
		opt(o)
	}

	now := o.now().UTC()

	id := o.id
	if id == "" {
		id = uuid.NewString()
	}

	priority := PriorityAt(now)
	if o.priority != nil {
		priority = *o.priority
	}

	t := &Task{
		ID:               id,
		ExternalTaskID:   o.externalTaskID,
		ExternalCallback: o.externalCallback,
		Name:             o.name,
		Type:             typ,
		Params:           params,
		BinaryParams:     binaryParams,
		Priority:         priority,
		WorkerID:         o.workerID,
		Status:           o.status,
		Bookmarked:       o.bookmarked,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := t.validateDraft(); err != nil {
		return nil, err
	}

	return t, nil
}

// validateDraft is Validate without the worker id, which the queue assigns.
func (t *Task) validateDraft() error {
	if t.WorkerID != "" {
		return t.Validate()
	}
	draft := *t
	draft.WorkerID = "-"
	return draft.Validate()
}
