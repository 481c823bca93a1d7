package logger

import (
	"log/slog"
	"time"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// TaskID records the task identifier under the key "task_id".
func TaskID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("task_id", id)
}

// WorkerID records the owning worker identity under the key "worker_id".
func WorkerID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("worker_id", id)
}

// Channel records a work-signal channel name.
func Channel(name string) slog.Attr {
	return slog.String("channel", name)
}

// Operation records the store or queue operation being performed.
func Operation(name string) slog.Attr {
	return slog.String("operation", name)
}

// Status records a task status.
func Status(s string) slog.Attr {
	return slog.String("status", s)
}

// Priority records a task priority.
func Priority(p int64) slog.Attr {
	return slog.Int64("priority", p)
}

// Count records an affected-row or result count.
func Count(n int64) slog.Attr {
	return slog.Int64("count", n)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
