package main

import (
	"fmt"
	"os"

	"github.com/dmitrymomot/agentscheduler/pkg/config"
	"github.com/dmitrymomot/agentscheduler/pkg/httpserver"
	"github.com/dmitrymomot/agentscheduler/pkg/pg"
	"github.com/dmitrymomot/agentscheduler/pkg/redis"
	"github.com/dmitrymomot/agentscheduler/pkg/taskqueue"
)

// Wake-up transports.
const (
	transportRedis  = "redis"
	transportMemory = "memory"
	transportNone   = "none"
)

type appConfig struct {
	Env         string `env:"APP_ENV" envDefault:"development"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"agentscheduler"`
	Wakeup      string `env:"WAKEUP_TRANSPORT" envDefault:"redis"`
}

type settings struct {
	app   appConfig
	pg    pg.Config
	redis redis.Config
	http  httpserver.Config
	queue taskqueue.Config
}

// loadSettings reads the dotenv files first, then the process environment.
func loadSettings(envFiles ...string) (settings, error) {
	var s settings
	files := config.WithEnvFiles(envFiles...)
	if err := config.Load(&s.app, files); err != nil {
		return s, err
	}
	if err := config.Load(&s.pg, files); err != nil {
		return s, err
	}
	if err := config.Load(&s.http, files); err != nil {
		return s, err
	}
	if err := config.Load(&s.queue, files); err != nil {
		return s, err
	}

	switch s.app.Wakeup {
	case transportRedis:
		if err := config.Load(&s.redis, files); err != nil {
			return s, err
		}
	case transportMemory, transportNone:
	default:
		return s, fmt.Errorf("unknown WAKEUP_TRANSPORT %q", s.app.Wakeup)
	}

	if s.queue.WorkerID == "" {
		host, err := os.Hostname()
		if err != nil {
			return s, fmt.Errorf("resolve worker id: %w", err)
		}
		s.queue.WorkerID = host
	}

	return s, nil
}
