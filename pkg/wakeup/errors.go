package wakeup

import "errors"

var (
	ErrSignalClosed   = errors.New("wakeup: signal is closed")
	ErrAlreadyBound   = errors.New("wakeup: channel already has a handler")
	ErrEmptyChannel   = errors.New("wakeup: channel name is empty")
	ErrNilHandler     = errors.New("wakeup: handler is nil")
	ErrNilRedisClient = errors.New("wakeup: redis client is nil")
)
