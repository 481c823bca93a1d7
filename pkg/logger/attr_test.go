package logger_test

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/agentscheduler/pkg/logger"
)

func TestAttrs(t *testing.T) {
	t.Parallel()

	err := errors.New("boom")
	assert.Equal(t, err, logger.Error(err).Value.Any())
	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))

	assert.Equal(t, "task_id", logger.TaskID("a").Key)
	assert.True(t, logger.TaskID("").Equal(slog.Attr{}))
	assert.Equal(t, "worker_id", logger.WorkerID("w").Key)
	assert.True(t, logger.WorkerID("").Equal(slog.Attr{}))

	assert.Equal(t, int64(7), logger.Priority(7).Value.Int64())
	assert.Equal(t, int64(3), logger.Count(3).Value.Int64())
	assert.Equal(t, time.Second, logger.Duration(time.Second).Value.Duration())
	assert.Equal(t, "agentscheduler:w", logger.Channel("agentscheduler:w").Value.String())
	assert.Equal(t, "insert", logger.Operation("insert").Value.String())
	assert.Equal(t, "pending", logger.Status("pending").Value.String())
	assert.Equal(t, "janitor", logger.Component("janitor").Value.String())
}
