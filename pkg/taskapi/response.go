package taskapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/dmitrymomot/agentscheduler/pkg/logger"
	"github.com/dmitrymomot/agentscheduler/pkg/taskqueue"
)

// Envelope is the body of every response.
type Envelope struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes.
const (
	CodeNotFound          = "not_found"
	CodeValidation        = "validation_error"
	CodeInvalidTransition = "invalid_transition"
	CodeTaskFinished      = "task_finished"
	CodeQueuePaused       = "queue_paused"
	CodeStoreUnavailable  = "store_unavailable"
	CodeNotImplemented    = "not_implemented"
	CodeInternal          = "internal_error"
)

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	data, err := sonic.ConfigStd.Marshal(body)
	if err != nil {
		http.Error(w, `{"error":{"code":"internal_error","message":"failed to encode response"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func respond(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Data: data})
}

func respondMeta(w http.ResponseWriter, data any, meta map[string]any) {
	writeJSON(w, http.StatusOK, Envelope{Data: data, Meta: meta})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Envelope{Error: &ErrorDetail{Code: code, Message: message}})
}

// statusFor maps queue errors onto HTTP status codes and error codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, taskqueue.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, taskqueue.ErrValidation):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, taskqueue.ErrInvalidTransition):
		return http.StatusConflict, CodeInvalidTransition
	case errors.Is(err, taskqueue.ErrConflict):
		return http.StatusConflict, CodeTaskFinished
	case errors.Is(err, taskqueue.ErrQueuePaused):
		return http.StatusConflict, CodeQueuePaused
	case errors.Is(err, taskqueue.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, CodeStoreUnavailable
	}
	return http.StatusInternalServerError, CodeInternal
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		a.logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			logger.Error(err))
		msg = http.StatusText(status)
	}
	respondError(w, status, code, msg)
}
