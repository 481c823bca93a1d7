package taskapi

import (
	"fmt"
	"net/http"

	"github.com/dmitrymomot/agentscheduler/pkg/binder"
	"github.com/dmitrymomot/agentscheduler/pkg/taskqueue"
)

const maxListLimit = 1000

var bindQuery = binder.Query()

// listQuery is the query string of GET /tasks.
type listQuery struct {
	Type           taskqueue.Type     `query:"type"`
	Statuses       []taskqueue.Status `query:"status"`
	Bookmarked     *bool              `query:"bookmarked"`
	ExternalTaskID string             `query:"external_task_id"`
	WorkerID       string             `query:"worker_id"`
	Limit          int                `query:"limit"`
	Offset         int                `query:"offset"`
	Order          taskqueue.Order    `query:"order"`
}

// countQuery is the query string of GET /tasks/count.
type countQuery struct {
	Type           taskqueue.Type     `query:"type"`
	Statuses       []taskqueue.Status `query:"status"`
	ExternalTaskID string             `query:"external_task_id"`
}

func bind(r *http.Request, v any) error {
	if err := bindQuery(r, v); err != nil {
		return fmt.Errorf("%w: %w", taskqueue.ErrValidation, err)
	}
	return nil
}

func validateSelectors(typ taskqueue.Type, statuses []taskqueue.Status) error {
	if typ != "" {
		if _, err := taskqueue.ParseType(string(typ)); err != nil {
			return err
		}
	}
	for _, s := range statuses {
		if _, err := taskqueue.ParseStatus(string(s)); err != nil {
			return err
		}
	}
	return nil
}

func parseListFilter(r *http.Request) (taskqueue.ListFilter, error) {
	var q listQuery
	if err := bind(r, &q); err != nil {
		return taskqueue.ListFilter{}, err
	}
	if err := validateSelectors(q.Type, q.Statuses); err != nil {
		return taskqueue.ListFilter{}, err
	}
	switch {
	case q.Limit < 0:
		return taskqueue.ListFilter{}, fmt.Errorf("%w: limit must be a non-negative integer", taskqueue.ErrValidation)
	case q.Limit > maxListLimit:
		return taskqueue.ListFilter{}, fmt.Errorf("%w: limit must not exceed %d", taskqueue.ErrValidation, maxListLimit)
	case q.Offset < 0:
		return taskqueue.ListFilter{}, fmt.Errorf("%w: offset must be a non-negative integer", taskqueue.ErrValidation)
	}
	order, err := taskqueue.ParseOrder(string(q.Order))
	if err != nil {
		return taskqueue.ListFilter{}, err
	}

	return taskqueue.ListFilter{
		Type:           q.Type,
		Statuses:       q.Statuses,
		Bookmarked:     q.Bookmarked,
		ExternalTaskID: q.ExternalTaskID,
		WorkerID:       q.WorkerID,
		Limit:          q.Limit,
		Offset:         q.Offset,
		Order:          order,
	}, nil
}

func parseCountFilter(r *http.Request) (taskqueue.CountFilter, error) {
	var q countQuery
	if err := bind(r, &q); err != nil {
		return taskqueue.CountFilter{}, err
	}
	if err := validateSelectors(q.Type, q.Statuses); err != nil {
		return taskqueue.CountFilter{}, err
	}
	return taskqueue.CountFilter{
		Type:           q.Type,
		Statuses:       q.Statuses,
		ExternalTaskID: q.ExternalTaskID,
	}, nil
}
