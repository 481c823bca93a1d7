package taskqueue

import "time"

// Config holds the queue settings loaded from the environment.
type Config struct {
	WorkerID        string        `env:"WORKER_ID"` // empty means the host name, resolved by the process
	CleanupInterval time.Duration `env:"QUEUE_CLEANUP_INTERVAL" envDefault:"1h"`
	CleanupSchedule string        `env:"QUEUE_CLEANUP_SCHEDULE"` // cron expression; overrides CleanupInterval when set
	Retention       time.Duration `env:"QUEUE_RETENTION" envDefault:"720h"`
}
