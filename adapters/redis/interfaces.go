package redis

import (
	"context"
)

// IProducer publishes typed payloads onto a Redis stream.
type IProducer[T any] interface {
	Start()
	Publish(data T) error
	Close()
}

// IConsumer fans a Redis stream out to a local channel. Every
// instance sees every message; use IGroupConsumer when each message
// must be processed exactly once across instances.
type IConsumer[T any] interface {
	Start()
	Subscribe() <-chan T
	Close()
}

// IGroupConsumer reads a Redis stream through a consumer group with
// ack and dead-letter semantics.
type IGroupConsumer[T any] interface {
	Start() error
	Subscribe() <-chan *Message[T]
	Close() error
}

// IAutoRenewMutex is a distributed lock that renews itself while held.
type IAutoRenewMutex interface {
	Lock(ctx context.Context) (context.Context, error)
	Unlock() (bool, error)
	Valid() bool
}
