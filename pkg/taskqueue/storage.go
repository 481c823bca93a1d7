package taskqueue

import (
	"context"
	"fmt"
	"time"
)

// Special priority arguments accepted by Storage.Reprioritize.
const (
	// PriorityFront moves a task ahead of every pending task.
	PriorityFront int64 = 0
	// PriorityBack gives a task a fresh enqueue-time priority.
	PriorityBack int64 = -1
)

// Order is the priority sort direction of List.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// ParseOrder converts a query value into an Order; empty means ascending.
func ParseOrder(v string) (Order, error) {
	switch Order(v) {
	case "", OrderAsc:
		return OrderAsc, nil
	case OrderDesc:
		return OrderDesc, nil
	}
	return "", fmt.Errorf("%w: order must be %q or %q, got %q", ErrValidation, OrderAsc, OrderDesc, v)
}

// ListFilter selects and orders tasks for Storage.List.
//
// Bookmarked filters only when it is explicitly true; nil and false both
// return bookmarked and unbookmarked tasks. Results are ordered by bookmarked
// ascending (unbookmarked first) unless Bookmarked is true, then by priority
// in Order direction, then by insertion order in the same direction.
type ListFilter struct {
	Type           Type
	Statuses       []Status
	Bookmarked     *bool
	ExternalTaskID string
	WorkerID       string
	Limit          int
	Offset         int
	Order          Order
}

// CountFilter selects tasks for Storage.Count.
type CountFilter struct {
	Type           Type
	Statuses       []Status
	ExternalTaskID string
}

// DeleteFilter selects tasks for Storage.DeleteMany. Bookmarked tasks are
// never deleted. Empty Statuses means TerminalStatuses(); a zero Before
// disables the age cutoff.
type DeleteFilter struct {
	Before   time.Time
	Statuses []Status
}

// StatusesOrDefault returns the effective status set.
func (f DeleteFilter) StatusesOrDefault() []Status {
	if len(f.Statuses) == 0 {
		return TerminalStatuses()
	}
	return f.Statuses
}

// InsertOutcome reports what an idempotent insert did.
type InsertOutcome int

const (
	// InsertRejected: a task with the same id exists in a terminal status; nothing changed.
	InsertRejected InsertOutcome = iota
	// Inserted: no task with the id existed.
	Inserted
	// Overwritten: the id existed as pending or running and was replaced.
	Overwritten
)

// OK reports whether the task is stored as submitted.
func (o InsertOutcome) OK() bool { return o != InsertRejected }

func (o InsertOutcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Overwritten:
		return "overwritten"
	}
	return "rejected"
}

// StatusChange describes a move to a new status.
type StatusChange struct {
	To Status
	At time.Time
	// Result is recorded for done and failed.
	Result *string
	// AckTag replaces the stored delivery tag when set.
	AckTag *int64
}

// Storage is the durable task table. Every method runs as one atomic unit
// against the backing store.
type Storage interface {
	// Get returns the task or ErrNotFound.
	Get(ctx context.Context, id string) (*Task, error)

	// Position counts pending tasks with a strictly smaller priority.
	// Returns ErrNotFound when the task is missing or not pending.
	Position(ctx context.Context, id string) (int64, error)

	List(ctx context.Context, filter ListFilter) ([]*Task, error)

	Count(ctx context.Context, filter CountFilter) (int64, error)

	// Insert stores task idempotently: an existing pending or running task with
	// the same id is overwritten, an existing terminal task is left untouched
	// and InsertRejected is returned without an error.
	Insert(ctx context.Context, task *Task) (InsertOutcome, error)

	// Transition applies change to the stored task in one atomic step. Only
	// the status columns are written, so a concurrent Reprioritize or
	// SetBookmarked is never overwritten. A repeated change is a no-op.
	Transition(ctx context.Context, id string, change StatusChange) (*Task, error)

	// SetBookmarked writes the bookmark flag and nothing else.
	SetBookmarked(ctx context.Context, id string, bookmarked bool) (*Task, error)

	// Reprioritize applies PriorityFront, PriorityBack or an exact priority.
	// An exact priority first shifts every task at or above it up by one.
	Reprioritize(ctx context.Context, id string, priority int64) (*Task, error)

	Delete(ctx context.Context, id string) error

	// DeleteMany removes unbookmarked tasks matching the filter and returns
	// the number of deleted rows.
	DeleteMany(ctx context.Context, filter DeleteFilter) (int64, error)
}

// StateStore keeps small key/value settings shared by all processes.
type StateStore interface {
	// GetValue returns the value and whether the key exists.
	GetValue(ctx context.Context, key string) (string, bool, error)
	SetValue(ctx context.Context, key, value string) error
}

// State keys and values.
const (
	StateKeyVersion    = "version"
	StateKeyQueueState = "queue_state"

	QueueStateRunning = "running"
	QueueStatePaused  = "paused"

	// StateVersion is written to StateKeyVersion on initialisation.
	StateVersion = "2"
)
