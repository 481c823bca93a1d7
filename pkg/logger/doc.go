// Package logger builds *slog.Logger instances for the scheduler processes and
// provides attribute helpers so that task, worker and channel identifiers are
// logged under the same keys everywhere.
//
// New applies a set of Option functions on top of production-safe defaults
// (JSON, INFO, stdout). ContextExtractor functions registered through
// WithContextExtractors or WithContextValue add attributes taken from the
// record's context, such as the HTTP request id.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithEnvironment(os.Getenv("APP_ENV"), "agentscheduler"),
//	    logger.WithContextValue("worker_id", workerKey{}),
//	)
//	logger.SetAsDefault(log)
//
//	log.InfoContext(ctx, "task enqueued",
//	    logger.TaskID(task.ID),
//	    logger.WorkerID(task.WorkerID),
//	)
//
// Helpers such as Error return an empty slog.Attr for nil input, so they can be
// passed unconditionally.
package logger
