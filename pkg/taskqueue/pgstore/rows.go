package pgstore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/agentscheduler/pkg/taskqueue"
)

const taskColumns = `id, external_task_id, external_callback, name, type, params, binary_params,
	priority, worker_id, status, result, bookmarked, ack_tag,
	created_at, updated_at, started_at, finished_at`

// taskRow mirrors a task row with every column nullable, so a damaged row
// is reported instead of silently decoded into zero values.
type taskRow struct {
	ID               *string
	ExternalTaskID   *string
	ExternalCallback *string
	Name             *string
	Type             *string
	Params           *string
	BinaryParams     []byte
	Priority         *int64
	WorkerID         *string
	Status           *string
	Result           *string
	Bookmarked       *bool
	AckTag           *int64
	CreatedAt        *time.Time
	UpdatedAt        *time.Time
	StartedAt        *time.Time
	FinishedAt       *time.Time
}

func scanTask(row pgx.Row) (*taskqueue.Task, error) {
	var r taskRow
	if err := row.Scan(
		&r.ID, &r.ExternalTaskID, &r.ExternalCallback, &r.Name, &r.Type, &r.Params, &r.BinaryParams,
		&r.Priority, &r.WorkerID, &r.Status, &r.Result, &r.Bookmarked, &r.AckTag,
		&r.CreatedAt, &r.UpdatedAt, &r.StartedAt, &r.FinishedAt,
	); err != nil {
		return nil, err
	}
	return r.toTask()
}

func collectTasks(rows pgx.Rows) ([]*taskqueue.Task, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*taskqueue.Task, error) {
		return scanTask(row)
	})
}

func (r taskRow) toTask() (*taskqueue.Task, error) {
	missing := func(column string) error {
		id := "<nil>"
		if r.ID != nil {
			id = *r.ID
		}
		return fmt.Errorf("%w: task %s has no %s", taskqueue.ErrCorruptRecord, id, column)
	}

	switch {
	case r.ID == nil:
		return nil, missing("id")
	case r.Type == nil:
		return nil, missing("type")
	case r.Params == nil:
		return nil, missing("params")
	case r.BinaryParams == nil:
		return nil, missing("binary_params")
	case r.Priority == nil:
		return nil, missing("priority")
	case r.WorkerID == nil:
		return nil, missing("worker_id")
	case r.Status == nil:
		return nil, missing("status")
	case r.CreatedAt == nil:
		return nil, missing("created_at")
	case r.UpdatedAt == nil:
		return nil, missing("updated_at")
	}

	typ := taskqueue.Type(*r.Type)
	if !typ.Valid() {
		return nil, fmt.Errorf("%w: task %s has unknown type %q", taskqueue.ErrCorruptRecord, *r.ID, *r.Type)
	}
	status := taskqueue.Status(*r.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("%w: task %s has unknown status %q", taskqueue.ErrCorruptRecord, *r.ID, *r.Status)
	}

	t := &taskqueue.Task{
		ID:               *r.ID,
		ExternalTaskID:   r.ExternalTaskID,
		ExternalCallback: r.ExternalCallback,
		Name:             r.Name,
		Type:             typ,
		Params:           json.RawMessage(*r.Params),
		BinaryParams:     r.BinaryParams,
		Priority:         *r.Priority,
		WorkerID:         *r.WorkerID,
		Status:           status,
		Result:           r.Result,
		AckTag:           r.AckTag,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
		StartedAt:        utcPtr(r.StartedAt),
		FinishedAt:       utcPtr(r.FinishedAt),
	}
	if r.Bookmarked != nil {
		t.Bookmarked = *r.Bookmarked
	}

	return t, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
