package taskapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/agentscheduler/pkg/logger"
	"github.com/dmitrymomot/agentscheduler/pkg/taskqueue"
)

const maxBodySize = 8 << 20

// API serves the task queue over HTTP.
type API struct {
	queue  *taskqueue.Queue
	usage  taskqueue.UsageReader
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an API.
type Option func(*API)

// WithUsageReader enables GET /usage/{window}.
func WithUsageReader(r taskqueue.UsageReader) Option {
	return func(a *API) { a.usage = r }
}

// WithLogger sets the logger for failed requests.
func WithLogger(l *slog.Logger) Option {
	return func(a *API) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithClock sets the time source for relative cleanup cutoffs.
func WithClock(now func() time.Time) Option {
	return func(a *API) {
		if now != nil {
			a.now = now
		}
	}
}

// New creates the API for q.
func New(q *taskqueue.Queue, opts ...Option) (*API, error) {
	if q == nil {
		return nil, errors.New("taskapi: queue cannot be nil")
	}
	a := &API{
		queue:  q,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(logger.Component("taskapi"))
	return a, nil
}

// Routes returns the router. Mount it on a parent router or serve it directly.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.logRequests)

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", a.listTasks)
		r.Post("/", a.enqueueTask)
		r.Get("/count", a.countTasks)
		r.Post("/cleanup", a.cleanup)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.getTask)
			r.Delete("/", a.deleteTask)
			r.Get("/position", a.position)
			r.Post("/reprioritize", a.reprioritize)
			r.Post("/interrupt", a.interrupt)
			r.Put("/bookmark", a.bookmark(true))
			r.Delete("/bookmark", a.bookmark(false))
		})
	})

	r.Route("/queue", func(r chi.Router) {
		r.Get("/", a.queueState)
		r.Post("/pause", a.pause)
		r.Post("/resume", a.resume)
	})

	r.Get("/usage/{window}", a.modelUsage)

	return r
}

// RequestIDExtractor adds the chi request id to log records written with a
// request context.
func RequestIDExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id := middleware.GetReqID(ctx); id != "" {
			return slog.String("request_id", id), true
		}
		return slog.Attr{}, false
	}
}

func (a *API) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		a.logger.DebugContext(r.Context(), "request served",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			logger.Duration(time.Since(start)))
	})
}

func (a *API) listTasks(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	tasks, err := a.queue.ListWire(r.Context(), filter)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondMeta(w, tasks, map[string]any{
		"count":  len(tasks),
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func (a *API) countTasks(w http.ResponseWriter, r *http.Request) {
	filter, err := parseCountFilter(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	n, err := a.queue.Count(r.Context(), filter)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]int64{"count": n})
}

func (a *API) getTask(w http.ResponseWriter, r *http.Request) {
	task, err := a.queue.GetWire(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, task)
}

func (a *API) position(w http.ResponseWriter, r *http.Request) {
	pos, err := a.queue.Position(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]int64{"position": pos})
}

func (a *API) enqueueTask(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		a.fail(w, r, fmt.Errorf("%w: %v", taskqueue.ErrValidation, err))
		return
	}

	ok, task, err := a.queue.EnqueueWire(r.Context(), body)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if !ok {
		a.fail(w, r, fmt.Errorf("%w: %s", taskqueue.ErrConflict, task.ID))
		return
	}
	respond(w, http.StatusCreated, taskqueue.ToWire(task))
}

type reprioritizeRequest struct {
	Priority *int64 `json:"priority"`
}

func (a *API) reprioritize(w http.ResponseWriter, r *http.Request) {
	var req reprioritizeRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if req.Priority == nil {
		a.fail(w, r, fmt.Errorf("%w: priority is required", taskqueue.ErrValidation))
		return
	}
	if *req.Priority < taskqueue.PriorityBack {
		a.fail(w, r, fmt.Errorf("%w: priority must be 0, -1 or positive", taskqueue.ErrValidation))
		return
	}

	task, err := a.queue.Reprioritize(r.Context(), chi.URLParam(r, "id"), *req.Priority)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, taskqueue.ToWire(task))
}

func (a *API) interrupt(w http.ResponseWriter, r *http.Request) {
	task, err := a.queue.Interrupt(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, taskqueue.ToWire(task))
}

func (a *API) bookmark(bookmarked bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		task, err := a.queue.SetBookmarked(r.Context(), chi.URLParam(r, "id"), bookmarked)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		respond(w, http.StatusOK, taskqueue.ToWire(task))
	}
}

func (a *API) deleteTask(w http.ResponseWriter, r *http.Request) {
	if err := a.queue.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// cleanupRequest selects tasks to delete. Before is an epoch second cutoff;
// OlderThan is a duration such as "720h" relative to now. Without either all
// matching tasks are deleted.
type cleanupRequest struct {
	Before    *int64   `json:"before"`
	OlderThan string   `json:"older_than"`
	Statuses  []string `json:"statuses"`
}

func (a *API) cleanup(w http.ResponseWriter, r *http.Request) {
	var req cleanupRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	var before time.Time
	switch {
	case req.Before != nil && req.OlderThan != "":
		a.fail(w, r, fmt.Errorf("%w: before and older_than are mutually exclusive", taskqueue.ErrValidation))
		return
	case req.Before != nil:
		before = time.Unix(*req.Before, 0).UTC()
	case req.OlderThan != "":
		d, err := time.ParseDuration(req.OlderThan)
		if err != nil || d <= 0 {
			a.fail(w, r, fmt.Errorf("%w: older_than must be a positive duration", taskqueue.ErrValidation))
			return
		}
		before = a.now().Add(-d)
	}

	statuses := make([]taskqueue.Status, 0, len(req.Statuses))
	for _, v := range req.Statuses {
		s, err := taskqueue.ParseStatus(v)
		if err != nil {
			a.fail(w, r, err)
			return
		}
		statuses = append(statuses, s)
	}

	n, err := a.queue.Cleanup(r.Context(), before, statuses...)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]int64{"deleted": n})
}

type queueStateResponse struct {
	WorkerID string `json:"worker_id"`
	Paused   bool   `json:"paused"`
}

func (a *API) queueState(w http.ResponseWriter, r *http.Request) {
	paused, err := a.queue.Paused(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, queueStateResponse{WorkerID: a.queue.WorkerID(), Paused: paused})
}

func (a *API) pause(w http.ResponseWriter, r *http.Request) {
	if err := a.queue.Pause(r.Context()); err != nil {
		a.fail(w, r, err)
		return
	}
	a.queueState(w, r)
}

func (a *API) resume(w http.ResponseWriter, r *http.Request) {
	if err := a.queue.Resume(r.Context()); err != nil {
		a.fail(w, r, err)
		return
	}
	a.queueState(w, r)
}

func (a *API) modelUsage(w http.ResponseWriter, r *http.Request) {
	if a.usage == nil {
		respondError(w, http.StatusNotImplemented, CodeNotImplemented, "model usage is not available")
		return
	}
	window, err := taskqueue.ParseUsageWindow(chi.URLParam(r, "window"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	usage, err := a.usage.ModelUsage(r.Context(), window)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if usage == nil {
		usage = []taskqueue.ModelUsage{}
	}
	respond(w, http.StatusOK, usage)
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("%w: %v", taskqueue.ErrValidation, err)
	}
	if len(body) == 0 {
		return nil
	}
	if err := sonic.ConfigStd.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: malformed request body", taskqueue.ErrValidation)
	}
	return nil
}
