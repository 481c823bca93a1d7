package taskqueue_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/agentscheduler/pkg/taskqueue"
)

const testWorker = "gpu-01"

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// testClock is a manually advanced clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock { return &testClock{now: baseTime} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

func newTask(t *testing.T, opts ...taskqueue.TaskOption) *taskqueue.Task {
	t.Helper()
	opts = append([]taskqueue.TaskOption{taskqueue.WithWorkerID(testWorker)}, opts...)
	task, err := taskqueue.NewTask(
		taskqueue.TypeTxt2Img,
		json.RawMessage(`{"prompt":"a cat","steps":20}`),
		[]byte{0x01, 0x02, 0x03},
		opts...,
	)
	require.NoError(t, err)
	return task
}

func insert(t *testing.T, store taskqueue.Storage, task *taskqueue.Task) {
	t.Helper()
	outcome, err := store.Insert(context.Background(), task)
	require.NoError(t, err)
	require.Equal(t, taskqueue.Inserted, outcome)
}

// moveTo walks a stored task through the state machine to status.
func moveTo(t *testing.T, store taskqueue.Storage, id string, status taskqueue.Status) *taskqueue.Task {
	t.Helper()
	ctx := context.Background()

	path := map[taskqueue.Status][]taskqueue.Status{
		taskqueue.StatusRunning:     {taskqueue.StatusRunning},
		taskqueue.StatusDone:        {taskqueue.StatusRunning, taskqueue.StatusDone},
		taskqueue.StatusFailed:      {taskqueue.StatusRunning, taskqueue.StatusFailed},
		taskqueue.StatusInterrupted: {taskqueue.StatusInterrupted},
	}

	var task *taskqueue.Task
	for _, s := range path[status] {
		var err error
		task, err = store.Transition(ctx, id, taskqueue.StatusChange{
			To:     s,
			At:     baseTime.Add(time.Minute),
			Result: ptr("ok"),
		})
		require.NoError(t, err)
	}
	return task
}

func ids(tasks []*taskqueue.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func ptr[T any](v T) *T { return &v }
