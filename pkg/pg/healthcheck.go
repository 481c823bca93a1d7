package pg

import (
	"context"
	"errors"
	"time"
)

const healthcheckTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// Healthcheck returns a readiness check that pings the pool, bounded by two
// seconds per call.
func Healthcheck(conn pinger) func(context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, healthcheckTimeout)
		defer cancel()

		if err := conn.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
