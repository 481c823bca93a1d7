package pgstore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/agentscheduler/pkg/logger"
	"github.com/dmitrymomot/agentscheduler/pkg/pg"
	"github.com/dmitrymomot/agentscheduler/pkg/taskqueue"
)

// DB is the subset of *pgxpool.Pool used by the store.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// reprioritizeLockKey serialises Reprioritize calls across processes.
const reprioritizeLockKey int64 = 0x61677363686564

// Store is the PostgreSQL task store.
type Store struct {
	db     DB
	logger *slog.Logger
	now    func() time.Time
}

var (
	_ taskqueue.Storage     = (*Store)(nil)
	_ taskqueue.StateStore  = (*Store)(nil)
	_ taskqueue.UsageReader = (*Store)(nil)
)

// New creates a store on top of db, usually a *pgxpool.Pool.
func New(db DB, opts ...Option) *Store {
	s := &Store{
		db:     db,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("pgstore"))
	return s
}

// Get implements taskqueue.Storage
func (s *Store) Get(ctx context.Context, id string) (*taskqueue.Task, error) {
	t, err := scanTask(s.db.QueryRow(ctx, "SELECT "+taskColumns+" FROM task WHERE id = $1", id))
	if err != nil {
		return nil, s.fail(ctx, "get", err)
	}
	return t, nil
}

// Position implements taskqueue.Storage
func (s *Store) Position(ctx context.Context, id string) (int64, error) {
	const q = `
		WITH target AS (
			SELECT priority FROM task WHERE id = $1 AND status = 'pending'
		)
		SELECT
			EXISTS (SELECT 1 FROM target),
			(SELECT COUNT(*) FROM task WHERE status = 'pending' AND priority < (SELECT priority FROM target))`

	var (
		found bool
		n     int64
	)
	if err := s.db.QueryRow(ctx, q, id).Scan(&found, &n); err != nil {
		return 0, s.fail(ctx, "position", err)
	}
	if !found {
		return 0, taskqueue.ErrNotFound
	}
	return n, nil
}

// List implements taskqueue.Storage
func (s *Store) List(ctx context.Context, filter taskqueue.ListFilter) ([]*taskqueue.Task, error) {
	q, args := buildListQuery(filter)
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, s.fail(ctx, "list", err)
	}
	tasks, err := collectTasks(rows)
	if err != nil {
		return nil, s.fail(ctx, "list", err)
	}
	return tasks, nil
}

// Count implements taskqueue.Storage
func (s *Store) Count(ctx context.Context, filter taskqueue.CountFilter) (int64, error) {
	q, args := buildCountQuery(filter)
	var n int64
	if err := s.db.QueryRow(ctx, q, args...).Scan(&n); err != nil {
		return 0, s.fail(ctx, "count", err)
	}
	return n, nil
}

// Insert implements taskqueue.Storage. A single upsert keeps the check and
// the write atomic: the conflict branch only fires for live tasks, so no row
// is returned when the stored task is already finished.
func (s *Store) Insert(ctx context.Context, task *taskqueue.Task) (taskqueue.InsertOutcome, error) {
	if task == nil {
		return taskqueue.InsertRejected, errors.New("task cannot be nil")
	}
	if err := task.Validate(); err != nil {
		return taskqueue.InsertRejected, err
	}

	const q = `
		INSERT INTO task (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, COALESCE($14, NOW()), NOW(), $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			external_task_id = EXCLUDED.external_task_id,
			external_callback = EXCLUDED.external_callback,
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			params = EXCLUDED.params,
			binary_params = EXCLUDED.binary_params,
			priority = EXCLUDED.priority,
			worker_id = EXCLUDED.worker_id,
			status = EXCLUDED.status,
			result = EXCLUDED.result,
			bookmarked = EXCLUDED.bookmarked,
			ack_tag = EXCLUDED.ack_tag,
			updated_at = NOW(),
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at
		WHERE task.status IN ('pending', 'running')
		RETURNING (xmax = 0)`

	var inserted bool
	err := s.db.QueryRow(ctx, q,
		task.ID, task.ExternalTaskID, task.ExternalCallback, task.Name, string(task.Type),
		string(task.Params), task.BinaryParams, task.Priority, task.WorkerID, string(task.Status),
		task.Result, task.Bookmarked, task.AckTag, nullTime(task.CreatedAt),
		task.StartedAt, task.FinishedAt,
	).Scan(&inserted)

	switch {
	case pg.IsNotFoundError(err):
		return taskqueue.InsertRejected, nil
	case err != nil:
		return taskqueue.InsertRejected, s.fail(ctx, "insert", err)
	case inserted:
		return taskqueue.Inserted, nil
	}
	return taskqueue.Overwritten, nil
}

// Transition implements taskqueue.Storage. The row is locked before the
// change is validated, and only the status columns are written back.
func (s *Store) Transition(ctx context.Context, id string, change taskqueue.StatusChange) (*taskqueue.Task, error) {
	var updated *taskqueue.Task
	err := pg.InTx(ctx, s.db, func(tx pgx.Tx) error {
		current, err := scanTask(tx.QueryRow(ctx, "SELECT "+taskColumns+" FROM task WHERE id = $1 FOR UPDATE", id))
		if err != nil {
			return err
		}
		if current.Status == change.To {
			updated = current
			return nil
		}
		if err := current.Transition(change.To, change.At, change.Result); err != nil {
			return err
		}
		if change.AckTag != nil {
			current.AckTag = change.AckTag
		}

		const q = `
			UPDATE task SET
				status = $2,
				result = $3,
				ack_tag = $4,
				started_at = $5,
				finished_at = $6,
				updated_at = $7
			WHERE id = $1
			RETURNING ` + taskColumns

		updated, err = scanTask(tx.QueryRow(ctx, q,
			id, string(current.Status), current.Result, current.AckTag,
			current.StartedAt, current.FinishedAt, current.UpdatedAt,
		))
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "transition", err)
	}
	return updated, nil
}

// SetBookmarked implements taskqueue.Storage
func (s *Store) SetBookmarked(ctx context.Context, id string, bookmarked bool) (*taskqueue.Task, error) {
	const q = `
		UPDATE task SET
			bookmarked = $2,
			updated_at = CASE WHEN bookmarked = $2 THEN updated_at ELSE NOW() END
		WHERE id = $1
		RETURNING ` + taskColumns

	t, err := scanTask(s.db.QueryRow(ctx, q, id, bookmarked))
	if err != nil {
		return nil, s.fail(ctx, "set_bookmarked", err)
	}
	return t, nil
}

// Reprioritize implements taskqueue.Storage
func (s *Store) Reprioritize(ctx context.Context, id string, priority int64) (*taskqueue.Task, error) {
	var moved *taskqueue.Task
	err := pg.InTx(ctx, s.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", reprioritizeLockKey); err != nil {
			return err
		}

		var exists bool
		if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM task WHERE id = $1)", id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return taskqueue.ErrNotFound
		}

		var (
			q    string
			args []any
		)
		switch priority {
		case taskqueue.PriorityFront:
			q = `UPDATE task SET
					priority = (SELECT COALESCE(MIN(priority), 0) FROM task WHERE status = 'pending') - 1,
					updated_at = NOW()
				WHERE id = $1
				RETURNING ` + taskColumns
			args = []any{id}
		case taskqueue.PriorityBack:
			q = "UPDATE task SET priority = $2, updated_at = NOW() WHERE id = $1 RETURNING " + taskColumns
			args = []any{id, taskqueue.PriorityAt(s.now())}
		default:
			if _, err := tx.Exec(ctx,
				"UPDATE task SET priority = priority + 1, updated_at = NOW() WHERE priority >= $1", priority,
			); err != nil {
				return err
			}
			q = "UPDATE task SET priority = $2, updated_at = NOW() WHERE id = $1 RETURNING " + taskColumns
			args = []any{id, priority}
		}

		var err error
		moved, err = scanTask(tx.QueryRow(ctx, q, args...))
		return err
	})
	if err != nil {
		return nil, s.fail(ctx, "reprioritize", err)
	}
	return moved, nil
}

// Delete implements taskqueue.Storage
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM task WHERE id = $1", id)
	if err != nil {
		return s.fail(ctx, "delete", err)
	}
	if tag.RowsAffected() == 0 {
		return taskqueue.ErrNotFound
	}
	return nil
}

// DeleteMany implements taskqueue.Storage
func (s *Store) DeleteMany(ctx context.Context, filter taskqueue.DeleteFilter) (int64, error) {
	q, args := buildDeleteManyQuery(filter)
	tag, err := s.db.Exec(ctx, q, args...)
	if err != nil {
		return 0, s.fail(ctx, "delete_many", err)
	}
	return tag.RowsAffected(), nil
}

// fail maps driver errors onto the queue's error contract. Domain errors pass
// through untouched; anything else is a store failure and is logged.
func (s *Store) fail(ctx context.Context, op string, err error) error {
	switch {
	case pg.IsNotFoundError(err):
		return taskqueue.ErrNotFound
	case errors.Is(err, taskqueue.ErrNotFound),
		errors.Is(err, taskqueue.ErrInvalidTransition),
		errors.Is(err, taskqueue.ErrValidation):
		return err
	}

	s.logger.ErrorContext(ctx, "task store operation failed",
		logger.Operation(op),
		slog.Bool("retryable", pg.IsSerializationError(err)),
		slog.Bool("schema_missing", pg.IsUndefinedTableError(err)),
		logger.Error(err))

	return errors.Join(taskqueue.ErrStoreUnavailable, err)
}
