package wakeup

import (
	"log/slog"
	"time"
)

// Option configures a signal transport.
type Option func(*options)

type options struct {
	logger       *slog.Logger
	pollTimeout  time.Duration
	retryBackoff time.Duration
	maxBacklog   int64
	bufferSize   int
}

func defaultOptions() *options {
	return &options{
		logger:       slog.Default(),
		pollTimeout:  time.Second,
		retryBackoff: time.Second,
		maxBacklog:   100,
		bufferSize:   16,
	}
}

// WithLogger sets the logger for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPollTimeout bounds a single BLPOP call. Redis counts the timeout in
// whole seconds, so values below one second are rounded up by the client.
// Close waits for the running poll to return.
func WithPollTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollTimeout = d
		}
	}
}

// WithRetryBackoff sets the pause after a failed poll.
func WithRetryBackoff(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.retryBackoff = d
		}
	}
}

// WithMaxBacklog caps the number of undelivered wake-ups kept per channel.
func WithMaxBacklog(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBacklog = n
		}
	}
}

// WithBufferSize sets the per-binding buffer of MemorySignal. Wake-ups
// beyond the buffer are dropped.
func WithBufferSize(n int) Option {
	return func(o *options) {
		o.bufferSize = max(n, 1)
	}
}
