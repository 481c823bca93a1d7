package binder

import "errors"

// ErrInvalidQuery is returned when a query parameter cannot be bound.
var ErrInvalidQuery = errors.New("invalid query parameter")
