package wakeup

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dmitrymomot/agentscheduler/pkg/logger"
	"github.com/dmitrymomot/agentscheduler/pkg/taskqueue"
)

// MemorySignal delivers wake-ups to handlers bound in the same process.
// Announcements to a channel without a handler are dropped, as are
// announcements that find the handler's buffer full.
// All methods are safe for concurrent use.
type MemorySignal struct {
	mu         sync.Mutex
	bindings   map[string]*memoryBinding
	bufferSize int
	logger     *slog.Logger
	closed     bool
	wg         sync.WaitGroup
}

type memoryBinding struct {
	ch     chan []byte
	cancel context.CancelFunc
}

var _ taskqueue.Signal = (*MemorySignal)(nil)

// NewMemorySignal creates an in-process signal.
func NewMemorySignal(opts ...Option) *MemorySignal {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &MemorySignal{
		bindings:   make(map[string]*memoryBinding),
		bufferSize: o.bufferSize,
		logger:     o.logger.With(logger.Component("wakeup")),
	}
}

// Announce implements taskqueue.Signal
func (s *MemorySignal) Announce(ctx context.Context, channel string) error {
	if channel == "" {
		return ErrEmptyChannel
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSignalClosed
	}

	b, ok := s.bindings[channel]
	if !ok {
		return nil
	}
	select {
	case b.ch <- []byte(channel):
	default:
		s.logger.DebugContext(ctx, "wake-up dropped, handler busy", logger.Channel(channel))
	}
	return nil
}

// Bind implements taskqueue.Signal. The handler runs on its own goroutine
// until ctx is cancelled or the signal is closed.
func (s *MemorySignal) Bind(ctx context.Context, channel string, handler taskqueue.SignalHandler) error {
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
	b := &memoryBinding{
		ch:     make(chan []byte, s.bufferSize),
		cancel: cancel,
	}
	s.bindings[channel] = b

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.unbind(channel, b)

		var tag int64
		for {
			select {
			case <-bindCtx.Done():
				return
			case body := <-b.ch:
				tag++
				deliver(bindCtx, s.logger, handler, taskqueue.SignalMessage{
					Channel:     channel,
					DeliveryTag: tag,
					Body:        body,
				})
			}
		}
	}()

	return nil
}

// Close stops all bindings and waits for running handlers to return.
// It is safe to call Close multiple times.
func (s *MemorySignal) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	for _, b := range s.bindings {
		b.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *MemorySignal) unbind(channel string, b *memoryBinding) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bindings[channel] == b {
		delete(s.bindings, channel)
	}
	b.cancel()
}

// deliver runs handler and logs its failure. Panics are recovered so a
// faulty handler cannot kill the binding loop.
func deliver(ctx context.Context, log *slog.Logger, handler taskqueue.SignalHandler, msg taskqueue.SignalMessage) {
	defer func() {
		if r := recover(); r != nil {
			log.ErrorContext(ctx, "wake-up handler panicked",
				logger.Channel(msg.Channel),
				slog.Any("panic", r))
		}
	}()

	if err := handler(ctx, msg); err != nil {
		log.ErrorContext(ctx, "wake-up handler failed",
			logger.Channel(msg.Channel),
			slog.Int64("delivery_tag", msg.DeliveryTag),
			logger.Error(err))
	}
}
