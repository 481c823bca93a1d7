package taskqueue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmitrymomot/agentscheduler/pkg/logger"
)

// Queue orchestrates idempotent enqueue, status transitions and read access on
// top of a Storage. It owns one worker identity and announces new work on
// that worker's channel.
type Queue struct {
	store    Storage
	state    StateStore
	signal   Signal
	workerID string
	logger   *slog.Logger
	now      func() time.Time
}

// NewQueue creates a queue for the given worker identity.
func NewQueue(store Storage, workerID string, opts ...QueueOption) (*Queue, error) {
	if store == nil {
		return nil, ErrStorageNil
	}
	if workerID == "" {
		return nil, ErrEmptyWorkerID
	}

	options := &queueOptions{
		signal: NopSignal{},
		logger: slog.Default(),
		now:    utcNow,
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Queue{
		store:    store,
		state:    options.state,
		signal:   options.signal,
		workerID: workerID,
		logger:   options.logger.With(logger.Component("queue"), logger.WorkerID(workerID)),
		now:      options.now,
	}, nil
}

// WorkerID returns the identity the queue was built with.
func (q *Queue) WorkerID() string { return q.workerID }

// Channel returns the work-signal channel of this queue's worker.
func (q *Queue) Channel() string { return ChannelName(q.workerID) }

// Enqueue stores task idempotently and announces it on the owning worker's
// channel. It returns false without an error when a task with the same id has
// already finished. A task without a worker id is assigned to this queue.
func (q *Queue) Enqueue(ctx context.Context, task *Task) (bool, error) {
	if task == nil {
		return false, fmt.Errorf("%w: task cannot be nil", ErrValidation)
	}
	if task.WorkerID == "" {
		task.WorkerID = q.workerID
	}
	if task.Status == "" {
		task.Status = StatusPending
	}
	if task.Status.Terminal() {
		return false, fmt.Errorf("%w: cannot enqueue a task in status %q", ErrValidation, task.Status)
	}
	if err := task.Validate(); err != nil {
		return false, err
	}

	outcome, err := q.store.Insert(ctx, task)
	if err != nil {
		q.logger.ErrorContext(ctx, "failed to enqueue task",
			logger.Operation("insert"),
			logger.TaskID(task.ID),
			logger.Error(err))
		return false, err
	}

	if !outcome.OK() {
		q.logger.InfoContext(ctx, "enqueue ignored, task already finished",
			logger.TaskID(task.ID))
		return false, nil
	}

	q.logger.DebugContext(ctx, "task enqueued",
		logger.TaskID(task.ID),
		logger.Priority(task.Priority),
		slog.String("outcome", outcome.String()))

	q.announce(ctx, task.WorkerID)

	return true, nil
}

// EnqueueWire decodes a wire payload and enqueues it.
func (q *Queue) EnqueueWire(ctx context.Context, data []byte) (bool, *Task, error) {
	task, err := DecodeWire(data)
	if err != nil {
		return false, nil, err
	}
	ok, err := q.Enqueue(ctx, task)
	return ok, task, err
}

// announce runs after the insert committed; failures never undo the enqueue.
func (q *Queue) announce(ctx context.Context, workerID string) {
	channel := ChannelName(workerID)
	if err := q.signal.Announce(ctx, channel); err != nil {
		q.logger.WarnContext(ctx, "failed to announce work",
			logger.Channel(channel),
			logger.Error(err))
	}
}

// Bind registers handler for wake-ups on this worker's channel.
func (q *Queue) Bind(ctx context.Context, handler SignalHandler) error {
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrValidation)
	}
	return q.signal.Bind(ctx, q.Channel(), handler)
}

// Next returns the first pending task of this worker in priority order.
// It returns ErrNotFound when nothing is pending and ErrQueuePaused while paused.
func (q *Queue) Next(ctx context.Context) (*Task, error) {
	paused, err := q.Paused(ctx)
	if err != nil {
		return nil, err
	}
	if paused {
		return nil, ErrQueuePaused
	}

	tasks, err := q.store.List(ctx, ListFilter{
		Statuses: []Status{StatusPending},
		WorkerID: q.workerID,
		Limit:    1,
		Order:    OrderAsc,
	})
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, ErrNotFound
	}
	return tasks[0], nil
}

// Start marks a pending task as running and records the delivery tag.
func (q *Queue) Start(ctx context.Context, id string, ackTag *int64) (*Task, error) {
	return q.transition(ctx, id, StatusChange{To: StatusRunning, AckTag: ackTag})
}

// Complete marks a running task as done with its result.
func (q *Queue) Complete(ctx context.Context, id, result string) (*Task, error) {
	return q.transition(ctx, id, StatusChange{To: StatusDone, Result: &result})
}

// Fail marks a running task as failed with its result.
func (q *Queue) Fail(ctx context.Context, id, result string) (*Task, error) {
	return q.transition(ctx, id, StatusChange{To: StatusFailed, Result: &result})
}

// Interrupt cancels a pending or running task.
func (q *Queue) Interrupt(ctx context.Context, id string) (*Task, error) {
	return q.transition(ctx, id, StatusChange{To: StatusInterrupted})
}

func (q *Queue) transition(ctx context.Context, id string, change StatusChange) (*Task, error) {
	change.At = q.now()

	updated, err := q.store.Transition(ctx, id, change)
	if err != nil {
		var terr *TransitionError
		switch {
		case errors.As(err, &terr):
			q.logger.WarnContext(ctx, "rejected status change",
				logger.TaskID(id),
				slog.String("from", string(terr.From)),
				slog.String("to", string(terr.To)))
		case !errors.Is(err, ErrNotFound):
			q.logger.ErrorContext(ctx, "failed to update task status",
				logger.Operation("transition"),
				logger.TaskID(id),
				logger.Status(string(change.To)),
				logger.Error(err))
		}
		return nil, err
	}

	q.logger.InfoContext(ctx, "task status changed",
		logger.TaskID(id),
		logger.Status(string(updated.Status)))

	return updated, nil
}

// Get returns a task by id.
func (q *Queue) Get(ctx context.Context, id string) (*Task, error) {
	return q.store.Get(ctx, id)
}

// GetWire returns a task by id in wire form.
func (q *Queue) GetWire(ctx context.Context, id string) (WireTask, error) {
	task, err := q.store.Get(ctx, id)
	if err != nil {
		return WireTask{}, err
	}
	return ToWire(task), nil
}

// Position returns how many pending tasks are ahead of the task.
func (q *Queue) Position(ctx context.Context, id string) (int64, error) {
	return q.store.Position(ctx, id)
}

func (q *Queue) List(ctx context.Context, filter ListFilter) ([]*Task, error) {
	return q.store.List(ctx, filter)
}

// ListWire lists tasks in wire form.
func (q *Queue) ListWire(ctx context.Context, filter ListFilter) ([]WireTask, error) {
	tasks, err := q.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]WireTask, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, ToWire(t))
	}
	return out, nil
}

func (q *Queue) Count(ctx context.Context, filter CountFilter) (int64, error) {
	return q.store.Count(ctx, filter)
}

// Reprioritize moves a task to the front (PriorityFront), the back
// (PriorityBack) or to an exact priority.
func (q *Queue) Reprioritize(ctx context.Context, id string, priority int64) (*Task, error) {
	task, err := q.store.Reprioritize(ctx, id, priority)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			q.logger.ErrorContext(ctx, "failed to reprioritize task",
				logger.Operation("reprioritize"),
				logger.TaskID(id),
				logger.Error(err))
		}
		return nil, err
	}

	q.logger.InfoContext(ctx, "task reprioritized",
		logger.TaskID(id),
		logger.Priority(task.Priority))

	return task, nil
}

// SetBookmarked flags or unflags a task. Bookmarked tasks survive cleanup.
func (q *Queue) SetBookmarked(ctx context.Context, id string, bookmarked bool) (*Task, error) {
	task, err := q.store.SetBookmarked(ctx, id, bookmarked)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			q.logger.ErrorContext(ctx, "failed to bookmark task",
				logger.Operation("bookmark"),
				logger.TaskID(id),
				logger.Error(err))
		}
		return nil, err
	}
	return task, nil
}

// Delete removes a single task.
func (q *Queue) Delete(ctx context.Context, id string) error {
	if err := q.store.Delete(ctx, id); err != nil {
		return err
	}
	q.logger.InfoContext(ctx, "task deleted", logger.TaskID(id))
	return nil
}

// Cleanup deletes unbookmarked tasks in the given statuses (terminal ones by
// default) created before the cutoff. A zero cutoff disables the age filter.
func (q *Queue) Cleanup(ctx context.Context, before time.Time, statuses ...Status) (int64, error) {
	n, err := q.store.DeleteMany(ctx, DeleteFilter{Before: before, Statuses: statuses})
	if err != nil {
		q.logger.ErrorContext(ctx, "failed to clean up tasks",
			logger.Operation("delete_many"),
			logger.Error(err))
		return 0, err
	}

	q.logger.InfoContext(ctx, "tasks cleaned up", logger.Count(n))
	return n, nil
}

// InitState records the state version and sets the queue to running if no
// run state was stored yet. Without a state store it does nothing.
func (q *Queue) InitState(ctx context.Context) error {
	if q.state == nil {
		return nil
	}
	if err := q.state.SetValue(ctx, StateKeyVersion, StateVersion); err != nil {
		return err
	}
	_, ok, err := q.state.GetValue(ctx, StateKeyQueueState)
	if err != nil {
		return err
	}
	if !ok {
		return q.state.SetValue(ctx, StateKeyQueueState, QueueStateRunning)
	}
	return nil
}

// Pause stops Next from handing out tasks.
func (q *Queue) Pause(ctx context.Context) error {
	return q.setRunState(ctx, QueueStatePaused)
}

// Resume undoes Pause.
func (q *Queue) Resume(ctx context.Context) error {
	return q.setRunState(ctx, QueueStateRunning)
}

// Paused reports the stored run state. Queues without a state store are never paused.
func (q *Queue) Paused(ctx context.Context) (bool, error) {
	if q.state == nil {
		return false, nil
	}
	v, _, err := q.state.GetValue(ctx, StateKeyQueueState)
	if err != nil {
		return false, err
	}
	return v == QueueStatePaused, nil
}

func (q *Queue) setRunState(ctx context.Context, value string) error {
	if q.state == nil {
		return fmt.Errorf("%w: queue has no state store", ErrValidation)
	}
	if err := q.state.SetValue(ctx, StateKeyQueueState, value); err != nil {
		return err
	}
	q.logger.InfoContext(ctx, "queue state changed", slog.String("state", value))
	return nil
}
