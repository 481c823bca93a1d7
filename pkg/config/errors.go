package config

import "errors"

var (
	// ErrParsingConfig wraps env parsing failures, missing required variables included.
	ErrParsingConfig = errors.New("config: cannot parse environment")
	// ErrNilPointer is returned when Load gets a nil destination.
	ErrNilPointer = errors.New("config: nil destination")
)
