package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettings_EnvFile(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "WAKEUP_TRANSPORT", "WORKER_ID", "QUEUE_RETENTION"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
	t.Setenv("QUEUE_RETENTION", "48h")

	path := filepath.Join(t.TempDir(), "scheduler.env")
	require.NoError(t, os.WriteFile(path, []byte(
		"DATABASE_URL=postgres://scheduler@localhost:5432/tasks\n"+
			"WAKEUP_TRANSPORT=memory\n"+
			"QUEUE_RETENTION=1h\n",
	), 0o600))

	cfg, err := loadSettings(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://scheduler@localhost:5432/tasks", cfg.pg.ConnectionString)
	assert.Equal(t, transportMemory, cfg.app.Wakeup)
	assert.Equal(t, "48h0m0s", cfg.queue.Retention.String(), "the environment wins over the file")

	host, err := os.Hostname()
	require.NoError(t, err)
	assert.Equal(t, host, cfg.queue.WorkerID)
}
