// Package httpserver wraps net/http with context-driven graceful shutdown,
// configurable timeouts, liveness and readiness handlers, and slog logging.
//
// Run listens, serves and blocks until the supplied context is cancelled,
// then drains in-flight requests within the shutdown timeout. Signal handling
// is left to the caller, usually through signal.NotifyContext, so the server
// composes with other long running components under one errgroup:
//
//	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
//	g.Go(func() error { return srv.Run(ctx, router) })
//
// Listen and serve failures are joined with ErrStart, shutdown failures with
// ErrShutdown.
package httpserver
