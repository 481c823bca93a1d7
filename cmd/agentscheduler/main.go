// Command agentscheduler serves the image-generation task queue: it migrates
// the task table, exposes the HTTP API and runs the retention janitor.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/agentscheduler/pkg/httpserver"
	"github.com/dmitrymomot/agentscheduler/pkg/logger"
	"github.com/dmitrymomot/agentscheduler/pkg/pg"
	"github.com/dmitrymomot/agentscheduler/pkg/redis"
	"github.com/dmitrymomot/agentscheduler/pkg/taskapi"
	"github.com/dmitrymomot/agentscheduler/pkg/taskqueue"
	"github.com/dmitrymomot/agentscheduler/pkg/taskqueue/pgstore"
	"github.com/dmitrymomot/agentscheduler/pkg/wakeup"
)

func main() {
	envFile := flag.String("env-file", ".env", "dotenv file read before the environment, ignored when missing")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *envFile); err != nil {
		slog.Error("agentscheduler stopped with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, envFile string) error {
	cfg, err := loadSettings(envFile)
	if err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.app.Env, cfg.app.ServiceName),
		logger.WithContextExtractors(taskapi.RequestIDExtractor()),
	)
	logger.SetAsDefault(log)

	pool, err := pg.Connect(ctx, cfg.pg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.pg, pgstore.Migrations, pgstore.MigrationsDir, log); err != nil {
		return err
	}

	store := pgstore.New(pool, pgstore.WithLogger(log))

	checks := []httpserver.Check{{Name: "postgres", Fn: pg.Healthcheck(pool)}}
	serverOpts := []httpserver.Option{httpserver.WithLogger(log)}
	queueOpts := []taskqueue.QueueOption{
		taskqueue.WithStateStore(store),
		taskqueue.WithLogger(log),
	}

	switch cfg.app.Wakeup {
	case transportRedis:
		client, err := redis.Connect(ctx, cfg.redis)
		if err != nil {
			return err
		}
		defer client.Close()

		sig, err := wakeup.NewRedisSignal(client, wakeup.WithLogger(log))
		if err != nil {
			return err
		}
		serverOpts = append(serverOpts, httpserver.WithOnShutdown(closeSignal(log, sig)))

		queueOpts = append(queueOpts, taskqueue.WithSignal(sig))
		checks = append(checks, httpserver.Check{Name: "redis", Fn: redis.Healthcheck(client)})
	case transportMemory:
		sig := wakeup.NewMemorySignal(wakeup.WithLogger(log))
		serverOpts = append(serverOpts, httpserver.WithOnShutdown(closeSignal(log, sig)))
		queueOpts = append(queueOpts, taskqueue.WithSignal(sig))
	}

	queue, err := taskqueue.NewQueue(store, cfg.queue.WorkerID, queueOpts...)
	if err != nil {
		return err
	}
	if err := queue.InitState(ctx); err != nil {
		return err
	}

	janitorOpts := []taskqueue.JanitorOption{
		taskqueue.WithCleanupInterval(cfg.queue.CleanupInterval),
		taskqueue.WithRetention(cfg.queue.Retention),
		taskqueue.WithJanitorLogger(log),
	}
	if cfg.queue.CleanupSchedule != "" {
		sched, err := taskqueue.ParseCleanupSchedule(cfg.queue.CleanupSchedule)
		if err != nil {
			return err
		}
		janitorOpts = append(janitorOpts, taskqueue.WithCleanupSchedule(sched))
	}

	janitor, err := taskqueue.NewJanitor(queue, janitorOpts...)
	if err != nil {
		return err
	}

	api, err := taskapi.New(queue,
		taskapi.WithUsageReader(store),
		taskapi.WithLogger(log),
	)
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Get("/health/live", httpserver.LivenessHandler())
	router.Get("/health/ready", httpserver.ReadinessHandler(log, checks...))
	router.Mount("/", api.Routes())

	server := httpserver.NewFromConfig(cfg.http, serverOpts...)

	log.InfoContext(ctx, "agentscheduler starting",
		logger.WorkerID(queue.WorkerID()),
		slog.String("wakeup", cfg.app.Wakeup))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(ctx, router) })
	g.Go(janitor.Run(ctx))

	return g.Wait()
}

// closeSignal stops wake-up bindings once no request can enqueue any more.
func closeSignal(log *slog.Logger, sig io.Closer) func(context.Context) {
	return func(ctx context.Context) {
		if err := sig.Close(); err != nil {
			log.WarnContext(ctx, "failed to close wake-up signal", logger.Error(err))
		}
	}
}
