package wakeup

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/agentscheduler/pkg/logger"
	"github.com/dmitrymomot/agentscheduler/pkg/taskqueue"
)

// RedisSignal uses one Redis list per channel. Announce appends to the list
// and trims it to the configured backlog; each binding pops with BLPOP, so an
// announcement is delivered to one consumer even when several processes
// bind the same channel.
type RedisSignal struct {
	client       redis.UniversalClient
	logger       *slog.Logger
	pollTimeout  time.Duration
	retryBackoff time.Duration
	maxBacklog   int64

	mu       sync.Mutex
	bindings map[string]context.CancelFunc
	closed   bool
	wg       sync.WaitGroup
}

var _ taskqueue.Signal = (*RedisSignal)(nil)

// NewRedisSignal creates a signal on top of an existing client. The client
// stays owned by the caller and is not closed by Close.
func NewRedisSignal(client redis.UniversalClient, opts ...Option) (*RedisSignal, error) {
	if client == nil {
		return nil, ErrNilRedisClient
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	return &RedisSignal{
		client:       client,
		logger:       o.logger.With(logger.Component("wakeup")),
		pollTimeout:  o.pollTimeout,
		retryBackoff: o.retryBackoff,
		maxBacklog:   o.maxBacklog,
		bindings:     make(map[string]context.CancelFunc),
	}, nil
}

// Announce implements taskqueue.Signal
func (s *RedisSignal) Announce(ctx context.Context, channel string) error {
	if channel == "" {
		return ErrEmptyChannel
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSignalClosed
	}

	body := strconv.FormatInt(time.Now().UnixMilli(), 10)

	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, channel, body)
		p.LTrim(ctx, channel, -s.maxBacklog, -1)
		return nil
	})
	return err
}

// Bind implements taskqueue.Signal. Each delivery gets a tag that increases
// by one per binding; workers may keep it as the task's ack tag.
func (s *RedisSignal) Bind(ctx context.Context, channel string, handler taskqueue.SignalHandler) error {
	if channel == "" {
		return ErrEmptyChannel
	}
	if handler == nil {
		return ErrNilHandler
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSignalClosed
	}
	if _, ok := s.bindings[channel]; ok {
		return ErrAlreadyBound
	}

	bindCtx, cancel := context.WithCancel(ctx)
	s.bindings[channel] = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.unbind(channel)
		s.consume(bindCtx, channel, handler)
	}()

	s.logger.InfoContext(ctx, "bound wake-up channel", logger.Channel(channel))

	return nil
}

func (s *RedisSignal) consume(ctx context.Context, channel string, handler taskqueue.SignalHandler) {
	var tag int64
	for {
		if ctx.Err() != nil {
			return
		}

		res, err := s.client.BLPop(ctx, s.pollTimeout, channel).Result()
		switch {
		case errors.Is(err, redis.Nil):
			continue
		case ctx.Err() != nil:
			return
		case err != nil:
			s.logger.WarnContext(ctx, "wake-up poll failed",
				logger.Channel(channel),
				logger.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.retryBackoff):
			}
			continue
		}

		// BLPOP returns [key, value]
		if len(res) < 2 {
			continue
		}
		tag++
		deliver(ctx, s.logger, handler, taskqueue.SignalMessage{
			Channel:     channel,
			DeliveryTag: tag,
			Body:        []byte(res[1]),
		})
	}
}

// Pending returns the number of undelivered wake-ups on channel.
func (s *RedisSignal) Pending(ctx context.Context, channel string) (int64, error) {
	return s.client.LLen(ctx, channel).Result()
}

// Close stops all bindings and waits for their loops to exit.
// It is safe to call Close multiple times.
func (s *RedisSignal) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for _, cancel := range s.bindings {
		cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *RedisSignal) unbind(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cancel, ok := s.bindings[channel]; ok {
		cancel()
		delete(s.bindings, channel)
	}
}
