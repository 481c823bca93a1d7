package taskqueue

import "context"

// SignalMessage is a single wake-up delivered to a bound handler.
type SignalMessage struct {
	Channel string
	// DeliveryTag identifies the delivery on the transport; workers may store
	// it on the task as AckTag.
	DeliveryTag int64
	Body        []byte
}

// SignalHandler consumes wake-ups for a channel.
type SignalHandler func(ctx context.Context, msg SignalMessage) error

// Signal announces that new work exists on a channel and lets workers bind a
// handler to their channel. It only reduces wake-up latency: the queue stays
// consistent and queryable when the signal is unavailable, announcements are
// best-effort and never retried by the queue.
type Signal interface {
	Announce(ctx context.Context, channel string) error
	Bind(ctx context.Context, channel string, handler SignalHandler) error
	Close() error
}

// NopSignal drops announcements and never delivers. It is the queue default.
type NopSignal struct{}

func (NopSignal) Announce(context.Context, string) error             { return nil }
func (NopSignal) Bind(context.Context, string, SignalHandler) error { return nil }
func (NopSignal) Close() error                                       { return nil }
