package taskqueue

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"
)

// MemoryStorage implements Storage and StateStore in process memory for tests
// and local development. It follows the same semantics as the PostgreSQL
// store; a single mutex stands in for transactions.
type MemoryStorage struct {
	mu    sync.RWMutex
	rows  map[string]*memoryRow
	state map[string]string
	seq   int64
	now   func() time.Time
}

type memoryRow struct {
	task *Task
	seq  int64
}

// MemoryOption configures a MemoryStorage.
type MemoryOption func(*MemoryStorage)

// WithMemoryClock sets the time source for updated_at and back-of-queue priorities.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(ms *MemoryStorage) {
		if now != nil {
			ms.now = now
		}
	}
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage(opts ...MemoryOption) *MemoryStorage {
	ms := &MemoryStorage{
		rows:  make(map[string]*memoryRow),
		state: make(map[string]string),
		now:   utcNow,
	}
	for _, opt := range opts {
		opt(ms)
	}
	return ms
}

// Get implements Storage
func (ms *MemoryStorage) Get(ctx context.Context, id string) (*Task, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	row, ok := ms.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return row.task.Clone(), nil
}

// Position implements Storage
func (ms *MemoryStorage) Position(ctx context.Context, id string) (int64, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	row, ok := ms.rows[id]
	if !ok || row.task.Status != StatusPending {
		return 0, ErrNotFound
	}

	var n int64
	for _, r := range ms.rows {
		if r.task.Status == StatusPending && r.task.Priority < row.task.Priority {
			n++
		}
	}
	return n, nil
}

// List implements Storage
func (ms *MemoryStorage) List(ctx context.Context, filter ListFilter) ([]*Task, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	bookmarkedOnly := filter.Bookmarked != nil && *filter.Bookmarked

	matched := make([]*memoryRow, 0, len(ms.rows))
	for _, r := range ms.rows {
		t := r.task
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, t.Status) {
			continue
		}
		if bookmarkedOnly && !t.Bookmarked {
			continue
		}
		if filter.ExternalTaskID != "" && (t.ExternalTaskID == nil || *t.ExternalTaskID != filter.ExternalTaskID) {
			continue
		}
		if filter.WorkerID != "" && t.WorkerID != filter.WorkerID {
			continue
		}
		matched = append(matched, r)
	}

	desc := filter.Order == OrderDesc

	slices.SortFunc(matched, func(a, b *memoryRow) int {
		if !bookmarkedOnly && a.task.Bookmarked != b.task.Bookmarked {
			if a.task.Bookmarked {
				return 1
			}
			return -1
		}
		c := cmp.Or(
			cmp.Compare(a.task.Priority, b.task.Priority),
			cmp.Compare(a.seq, b.seq),
		)
		if desc {
			return -c
		}
		return c
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filter.Offset:]
		}
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	out := make([]*Task, 0, len(matched))
	for _, r := range matched {
		out = append(out, r.task.Clone())
	}
	return out, nil
}

// Count implements Storage
func (ms *MemoryStorage) Count(ctx context.Context, filter CountFilter) (int64, error) {
	tasks, err := ms.List(ctx, ListFilter{
		Type:           filter.Type,
		Statuses:       filter.Statuses,
		ExternalTaskID: filter.ExternalTaskID,
	})
	if err != nil {
		return 0, err
	}
	return int64(len(tasks)), nil
}

// Insert implements Storage
func (ms *MemoryStorage) Insert(ctx context.Context, task *Task) (InsertOutcome, error) {
	if task == nil {
		return InsertRejected, errors.New("task cannot be nil")
	}
	if err := task.Validate(); err != nil {
		return InsertRejected, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := ms.now().UTC()
	stored := task.Clone()
	stored.UpdatedAt = now

	if existing, ok := ms.rows[task.ID]; ok {
		if existing.task.Status.Terminal() {
			return InsertRejected, nil
		}
		stored.CreatedAt = existing.task.CreatedAt
		existing.task = stored
		return Overwritten, nil
	}

	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.CreatedAt = stored.CreatedAt.UTC()
	ms.seq++
	ms.rows[task.ID] = &memoryRow{task: stored, seq: ms.seq}

	return Inserted, nil
}

// Transition implements Storage
func (ms *MemoryStorage) Transition(ctx context.Context, id string, change StatusChange) (*Task, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	row, ok := ms.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if row.task.Status == change.To {
		return row.task.Clone(), nil
	}

	next := row.task.Clone()
	if err := next.Transition(change.To, change.At, change.Result); err != nil {
		return nil, err
	}
	if change.AckTag != nil {
		next.AckTag = clonePtr(change.AckTag)
	}
	row.task = next

	return next.Clone(), nil
}

// SetBookmarked implements Storage
func (ms *MemoryStorage) SetBookmarked(ctx context.Context, id string, bookmarked bool) (*Task, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	row, ok := ms.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	if row.task.Bookmarked != bookmarked {
		row.task.Bookmarked = bookmarked
		row.task.UpdatedAt = ms.now().UTC()
	}
	return row.task.Clone(), nil
}

// Reprioritize implements Storage
func (ms *MemoryStorage) Reprioritize(ctx context.Context, id string, priority int64) (*Task, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	row, ok := ms.rows[id]
	if !ok {
		return nil, ErrNotFound
	}

	now := ms.now().UTC()

	switch priority {
	case PriorityFront:
		row.task.Priority = ms.minPendingPriority() - 1
	case PriorityBack:
		row.task.Priority = PriorityAt(now)
	default:
		for _, r := range ms.rows {
			if r.task.Priority >= priority {
				r.task.Priority++
				r.task.UpdatedAt = now
			}
		}
		row.task.Priority = priority
	}
	row.task.UpdatedAt = now

	return row.task.Clone(), nil
}

// Delete implements Storage
func (ms *MemoryStorage) Delete(ctx context.Context, id string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.rows[id]; !ok {
		return ErrNotFound
	}
	delete(ms.rows, id)
	return nil
}

// DeleteMany implements Storage
func (ms *MemoryStorage) DeleteMany(ctx context.Context, filter DeleteFilter) (int64, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	statuses := filter.StatusesOrDefault()

	var n int64
	for id, r := range ms.rows {
		t := r.task
		if t.Bookmarked || !slices.Contains(statuses, t.Status) {
			continue
		}
		if !filter.Before.IsZero() && !t.CreatedAt.Before(filter.Before) {
			continue
		}
		delete(ms.rows, id)
		n++
	}
	return n, nil
}

// GetValue implements StateStore
func (ms *MemoryStorage) GetValue(ctx context.Context, key string) (string, bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	v, ok := ms.state[key]
	return v, ok, nil
}

// SetValue implements StateStore
func (ms *MemoryStorage) SetValue(ctx context.Context, key, value string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.state[key] = value
	return nil
}

// minPendingPriority returns the smallest pending priority, or 0 when there
// are no pending tasks. Must be called with the lock held.
func (ms *MemoryStorage) minPendingPriority() int64 {
	var (
		minPriority int64
		found       bool
	)
	for _, r := range ms.rows {
		if r.task.Status != StatusPending {
			continue
		}
		if !found || r.task.Priority < minPriority {
			minPriority = r.task.Priority
			found = true
		}
	}
	return minPriority
}
