package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/agentscheduler/pkg/config"
)

type queueConfig struct {
	WorkerID  string        `env:"WORKER_ID,required"`
	Retention time.Duration `env:"RETENTION" envDefault:"24h"`
	Batch     int           `env:"BATCH" envDefault:"10"`
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("defaults and values", func(t *testing.T) {
		t.Parallel()
		var cfg queueConfig
		err := config.Load(&cfg, config.WithEnvironment(map[string]string{"WORKER_ID": "gpu-01"}))
		require.NoError(t, err)
		assert.Equal(t, "gpu-01", cfg.WorkerID)
		assert.Equal(t, 24*time.Hour, cfg.Retention)
		assert.Equal(t, 10, cfg.Batch)
	})

	t.Run("prefix", func(t *testing.T) {
		t.Parallel()
		var cfg queueConfig
		err := config.Load(&cfg,
			config.WithPrefix("SCHED_"),
			config.WithEnvironment(map[string]string{"SCHED_WORKER_ID": "w", "SCHED_BATCH": "3"}),
		)
		require.NoError(t, err)
		assert.Equal(t, "w", cfg.WorkerID)
		assert.Equal(t, 3, cfg.Batch)
	})

	t.Run("missing required", func(t *testing.T) {
		t.Parallel()
		var cfg queueConfig
		err := config.Load(&cfg, config.WithEnvironment(map[string]string{}))
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Parallel()
		var cfg queueConfig
		err := config.Load(&cfg, config.WithEnvironment(map[string]string{"WORKER_ID": "w", "BATCH": "many"}))
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, config.Load[queueConfig](nil), config.ErrNilPointer)
	})
}

func TestLoad_Cached(t *testing.T) {
	t.Setenv("CACHE_TEST_NAME", "first")

	type cachedConfig struct {
		Name string `env:"CACHE_TEST_NAME"`
	}

	var a cachedConfig
	require.NoError(t, config.Load(&a))
	assert.Equal(t, "first", a.Name)

	t.Setenv("CACHE_TEST_NAME", "second")
	var b cachedConfig
	require.NoError(t, config.Load(&b))
	assert.Equal(t, "first", b.Name)
}

func TestLoad_EnvFiles(t *testing.T) {
	// restores the variable after godotenv sets it
	t.Setenv("ENVFILE_TEST_NAME", "")
	require.NoError(t, os.Unsetenv("ENVFILE_TEST_NAME"))
	t.Setenv("ENVFILE_TEST_KEPT", "from-env")

	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("ENVFILE_TEST_NAME=from-file\nENVFILE_TEST_KEPT=from-file\n"), 0o600))

	type fileConfig struct {
		Name string `env:"ENVFILE_TEST_NAME"`
		Kept string `env:"ENVFILE_TEST_KEPT"`
	}

	var cfg fileConfig
	require.NoError(t, config.Load(&cfg, config.WithEnvFiles(filepath.Join(t.TempDir(), "missing.env"), path)))
	assert.Equal(t, "from-file", cfg.Name)
	assert.Equal(t, "from-env", cfg.Kept, "existing variables win")
}
