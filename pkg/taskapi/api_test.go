package taskapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/agentscheduler/pkg/logger"
	"github.com/dmitrymomot/agentscheduler/pkg/taskapi"
	"github.com/dmitrymomot/agentscheduler/pkg/taskqueue"
)

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type usageStub struct {
	usage []taskqueue.ModelUsage
	err   error
}

func (u usageStub) ModelUsage(context.Context, taskqueue.UsageWindow) ([]taskqueue.ModelUsage, error) {
	return u.usage, u.err
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  map[string]any  `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type fixture struct {
	srv   *httptest.Server
	queue *taskqueue.Queue
	store *taskqueue.MemoryStorage
}

func newFixture(t *testing.T, opts ...taskapi.Option) *fixture {
	t.Helper()
	store := taskqueue.NewMemoryStorage()
	q, err := taskqueue.NewQueue(store, "gpu-01",
		taskqueue.WithStateStore(store),
		taskqueue.WithLogger(logger.Nop()),
	)
	require.NoError(t, err)
	require.NoError(t, q.InitState(context.Background()))

	opts = append([]taskapi.Option{taskapi.WithLogger(logger.Nop())}, opts...)
	api, err := taskapi.New(q, opts...)
	require.NoError(t, err)

	srv := httptest.NewServer(api.Routes())
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, queue: q, store: store}
}

func (f *fixture) do(t *testing.T, method, path, body string) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, reader)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &env), string(data))
	}
	return resp.StatusCode, env
}

func (f *fixture) enqueue(t *testing.T, id string, priority int64) {
	t.Helper()
	task, err := taskqueue.NewTask(taskqueue.TypeTxt2Img, json.RawMessage(`{"prompt":"x"}`), []byte{1},
		taskqueue.WithID(id), taskqueue.WithPriority(priority))
	require.NoError(t, err)
	ok, err := f.queue.Enqueue(context.Background(), task)
	require.NoError(t, err)
	require.True(t, ok)
}

func decodeTasks(t *testing.T, raw json.RawMessage) []taskqueue.WireTask {
	t.Helper()
	var out []taskqueue.WireTask
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func wireIDs(tasks []taskqueue.WireTask) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestNew_NilQueue(t *testing.T) {
	t.Parallel()
	_, err := taskapi.New(nil)
	assert.Error(t, err)
}

func TestAPI_EnqueueAndGet(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	status, env := f.do(t, http.MethodPost, "/tasks",
		`{"id":"t1","type":"txt2img","params":{"prompt":"a cat"},"binary_params":"AQID","name":"cat"}`)
	require.Equal(t, http.StatusCreated, status)

	var created taskqueue.WireTask
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "t1", created.ID)
	assert.Equal(t, "gpu-01", created.WorkerID)
	assert.Equal(t, taskqueue.StatusPending, created.Status)

	status, env = f.do(t, http.MethodGet, "/tasks/t1", "")
	require.Equal(t, http.StatusOK, status)
	var got taskqueue.WireTask
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "cat", *got.Name)
	assert.Equal(t, "AQID", *got.BinaryParams)
	assert.JSONEq(t, `{"prompt":"a cat"}`, string(got.Params))

	status, env = f.do(t, http.MethodGet, "/tasks/missing", "")
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, taskapi.CodeNotFound, env.Error.Code)
}

func TestAPI_EnqueueErrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	status, env := f.do(t, http.MethodPost, "/tasks", `{"type":"img2txt","params":{},"binary_params":""}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, taskapi.CodeValidation, env.Error.Code)

	status, _ = f.do(t, http.MethodPost, "/tasks", `not json`)
	assert.Equal(t, http.StatusBadRequest, status)

	f.enqueue(t, "done", 1)
	_, err := f.queue.Start(context.Background(), "done", nil)
	require.NoError(t, err)
	_, err = f.queue.Complete(context.Background(), "done", "ok")
	require.NoError(t, err)

	status, env = f.do(t, http.MethodPost, "/tasks", `{"id":"done","type":"txt2img","params":{},"binary_params":""}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, taskapi.CodeTaskFinished, env.Error.Code)
}

func TestAPI_ListAndCount(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.enqueue(t, "a", 30)
	f.enqueue(t, "b", 10)
	f.enqueue(t, "c", 20)
	_, err := f.queue.SetBookmarked(context.Background(), "b", true)
	require.NoError(t, err)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "default order", query: "", want: []string{"c", "a", "b"}},
		{name: "descending", query: "?order=desc", want: []string{"a", "c", "b"}},
		{name: "bookmarked", query: "?bookmarked=true", want: []string{"b"}},
		{name: "bookmarked false lists everything", query: "?bookmarked=false", want: []string{"c", "a", "b"}},
		{name: "repeated status", query: "?status=pending&status=done", want: []string{"c", "a", "b"}},
		{name: "paged", query: "?limit=1&offset=1", want: []string{"a"}},
		{name: "status list", query: "?status=pending,running", want: []string{"c", "a", "b"}},
		{name: "no match", query: "?status=done", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			status, env := f.do(t, http.MethodGet, "/tasks"+tt.query, "")
			require.Equal(t, http.StatusOK, status)
			assert.Equal(t, tt.want, wireIDs(decodeTasks(t, env.Data)))
			assert.Equal(t, float64(len(tt.want)), env.Meta["count"])
		})
	}

	for _, q := range []string{"?limit=-1", "?limit=abc", "?order=up", "?status=queued", "?type=x", "?bookmarked=maybe", "?limit=5000", "?offset=-2", "?status=pending,queued"} {
		status, env := f.do(t, http.MethodGet, "/tasks"+q, "")
		assert.Equal(t, http.StatusBadRequest, status, q)
		assert.Equal(t, taskapi.CodeValidation, env.Error.Code, q)
	}

	status, env := f.do(t, http.MethodGet, "/tasks/count?type=txt2img", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"count":3}`, string(env.Data))

	status, env = f.do(t, http.MethodGet, "/tasks/count?status=done", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"count":0}`, string(env.Data))

	status, env = f.do(t, http.MethodGet, "/tasks/count?status=finished", "")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, taskapi.CodeValidation, env.Error.Code)
}

func TestAPI_PositionAndReprioritize(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.enqueue(t, "a", 10)
	f.enqueue(t, "b", 20)

	status, env := f.do(t, http.MethodGet, "/tasks/b/position", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"position":1}`, string(env.Data))

	status, env = f.do(t, http.MethodPost, "/tasks/b/reprioritize", `{"priority":0}`)
	require.Equal(t, http.StatusOK, status)
	var moved taskqueue.WireTask
	require.NoError(t, json.Unmarshal(env.Data, &moved))
	assert.Equal(t, int64(9), *moved.Priority)

	status, env = f.do(t, http.MethodGet, "/tasks/a/position", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"position":1}`, string(env.Data))

	status, _ = f.do(t, http.MethodPost, "/tasks/b/reprioritize", `{}`)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = f.do(t, http.MethodPost, "/tasks/b/reprioritize", `{"priority":-7}`)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = f.do(t, http.MethodPost, "/tasks/missing/reprioritize", `{"priority":5}`)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_InterruptBookmarkDelete(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.enqueue(t, "a", 10)

	status, env := f.do(t, http.MethodPut, "/tasks/a/bookmark", "")
	require.Equal(t, http.StatusOK, status)
	var task taskqueue.WireTask
	require.NoError(t, json.Unmarshal(env.Data, &task))
	assert.True(t, *task.Bookmarked)

	status, _ = f.do(t, http.MethodDelete, "/tasks/a/bookmark", "")
	require.Equal(t, http.StatusOK, status)

	status, env = f.do(t, http.MethodPost, "/tasks/a/interrupt", "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &task))
	assert.Equal(t, taskqueue.StatusInterrupted, task.Status)

	status, _ = f.do(t, http.MethodPost, "/tasks/a/interrupt", "")
	assert.Equal(t, http.StatusOK, status, "repeating a status is a no-op")

	f.enqueue(t, "done", 1)
	_, err := f.queue.Start(context.Background(), "done", nil)
	require.NoError(t, err)
	_, err = f.queue.Complete(context.Background(), "done", "ok")
	require.NoError(t, err)

	status, env = f.do(t, http.MethodPost, "/tasks/done/interrupt", "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, taskapi.CodeInvalidTransition, env.Error.Code)

	status, _ = f.do(t, http.MethodDelete, "/tasks/a", "")
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = f.do(t, http.MethodDelete, "/tasks/a", "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAPI_Cleanup(t *testing.T) {
	t.Parallel()
	f := newFixture(t, taskapi.WithClock(func() time.Time { return baseTime }))
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		f.enqueue(t, id, 1)
		_, err := f.queue.Interrupt(ctx, id)
		require.NoError(t, err)
	}
	_, err := f.queue.SetBookmarked(ctx, "b", true)
	require.NoError(t, err)

	status, _ := f.do(t, http.MethodPost, "/tasks/cleanup", `{"before":1,"older_than":"1h"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = f.do(t, http.MethodPost, "/tasks/cleanup", `{"statuses":["queued"]}`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env := f.do(t, http.MethodPost, "/tasks/cleanup", `{"before":1}`)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"deleted":0}`, string(env.Data))

	status, env = f.do(t, http.MethodPost, "/tasks/cleanup", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"deleted":1}`, string(env.Data))

	_, err = f.queue.Get(ctx, "b")
	assert.NoError(t, err)
}

func TestAPI_PauseResume(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	status, env := f.do(t, http.MethodGet, "/queue", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"worker_id":"gpu-01","paused":false}`, string(env.Data))

	status, env = f.do(t, http.MethodPost, "/queue/pause", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"worker_id":"gpu-01","paused":true}`, string(env.Data))

	f.enqueue(t, "a", 1)
	_, err := f.queue.Next(context.Background())
	assert.ErrorIs(t, err, taskqueue.ErrQueuePaused)

	status, env = f.do(t, http.MethodPost, "/queue/resume", "")
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"worker_id":"gpu-01","paused":false}`, string(env.Data))
}

func TestAPI_ModelUsage(t *testing.T) {
	t.Parallel()

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		status, env := f.do(t, http.MethodGet, "/usage/7_day", "")
		assert.Equal(t, http.StatusNotImplemented, status)
		assert.Equal(t, taskapi.CodeNotImplemented, env.Error.Code)
	})

	t.Run("windows", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, taskapi.WithUsageReader(usageStub{
			usage: []taskqueue.ModelUsage{{Model: "sdxl", Weight: 12}},
		}))

		status, env := f.do(t, http.MethodGet, "/usage/7_day", "")
		require.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `[{"model":"sdxl","weight":12}]`, string(env.Data))

		status, _ = f.do(t, http.MethodGet, "/usage/1_year", "")
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, taskapi.WithUsageReader(usageStub{
			err: errors.Join(taskqueue.ErrStoreUnavailable, errors.New("conn refused")),
		}))
		status, env := f.do(t, http.MethodGet, "/usage/5_min", "")
		assert.Equal(t, http.StatusServiceUnavailable, status)
		assert.Equal(t, taskapi.CodeStoreUnavailable, env.Error.Code)
		assert.Equal(t, "Service Unavailable", env.Error.Message)
		assert.NotContains(t, env.Error.Message, "conn refused")
	})
}

func TestRequestIDExtractor(t *testing.T) {
	t.Parallel()
	extract := taskapi.RequestIDExtractor()

	_, ok := extract(context.Background())
	assert.False(t, ok)

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	attr, ok := extract(ctx)
	require.True(t, ok)
	assert.Equal(t, "request_id", attr.Key)
	assert.Equal(t, "req-1", attr.Value.String())
}
