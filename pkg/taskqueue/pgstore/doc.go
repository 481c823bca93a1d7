// Package pgstore implements taskqueue.Storage, taskqueue.StateStore and
// taskqueue.UsageReader on PostgreSQL using pgx.
//
// Every operation runs as a single statement or inside one transaction.
// Insert is a single upsert that never overwrites a finished task. Transition
// locks the row, validates the status change against the stored status and
// writes only the status columns. Reprioritize serialises concurrent callers
// with a transaction-scoped advisory lock.
//
// The schema is shipped as embedded goose migrations:
//
//	if err := pg.Migrate(ctx, pool, cfg, pgstore.Migrations, pgstore.MigrationsDir, log); err != nil {
//	    return err
//	}
//	store := pgstore.New(pool, pgstore.WithLogger(log))
//
// Driver and connectivity failures are returned joined with
// taskqueue.ErrStoreUnavailable.
package pgstore
