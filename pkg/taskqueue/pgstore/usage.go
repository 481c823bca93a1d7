package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/agentscheduler/pkg/taskqueue"
)

// ModelUsage implements taskqueue.UsageReader
func (s *Store) ModelUsage(ctx context.Context, window taskqueue.UsageWindow) ([]taskqueue.ModelUsage, error) {
	if _, err := taskqueue.ParseUsageWindow(string(window)); err != nil {
		return nil, err
	}

	view := pgx.Identifier{"metrics", "model_usage_" + string(window)}.Sanitize()
	rows, err := s.db.Query(ctx, "SELECT model, weight::BIGINT FROM "+view+" ORDER BY weight DESC, model")
	if err != nil {
		return nil, s.fail(ctx, "model_usage", err)
	}

	usage, err := pgx.CollectRows(rows, pgx.RowToStructByPos[taskqueue.ModelUsage])
	if err != nil {
		return nil, s.fail(ctx, "model_usage", err)
	}
	return usage, nil
}
