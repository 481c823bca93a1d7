package redis

import "errors"

var (
	// ErrEmptyURL is returned when REDIS_URL is empty.
	ErrEmptyURL = errors.New("redis: empty connection url, set REDIS_URL")
	// ErrInvalidURL wraps redis.ParseURL failures.
	ErrInvalidURL = errors.New("redis: invalid connection url")
	// ErrNotReady is returned when no ping succeeded within the retry budget.
	ErrNotReady = errors.New("redis: server not ready")
	// ErrHealthcheckFailed is returned by the readiness check.
	ErrHealthcheckFailed = errors.New("redis: healthcheck failed")
)
