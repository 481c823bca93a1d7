// Package pg bootstraps the PostgreSQL layer of the scheduler on top of
// pgx/v5: a retrying pool constructor, goose migrations read from an fs.FS,
// a transaction helper, a readiness check and SQLSTATE classifiers.
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, pgstore.Migrations, pgstore.MigrationsDir, log); err != nil {
//		return err
//	}
//
// When Config.Schema is set the pool's search_path becomes "<schema>,metrics"
// so that unqualified table names resolve to the service schema while the
// reporting views stay reachable.
package pg
