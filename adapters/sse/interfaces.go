package sse

// PublishRequest pairs a channel name with the message to deliver there.
type PublishRequest[T any] struct {
	Channel string `json:"channel"`
	Message T      `json:"message"`
}

// IChannel fans messages for one topic out to its subscribers.
type IChannel[T any] interface {
	// Subscribe creates a new subscription and returns its receive channel.
	Subscribe() <-chan T
	// Unsubscribe removes and closes the given subscription.
	Unsubscribe(ch <-chan T)
	// UnsubscribeAll removes and closes every subscription.
	UnsubscribeAll()
	// Broadcast delivers the message to every current subscriber.
	Broadcast(message T)
	// IsIdle reports whether the channel has no subscribers.
	IsIdle() bool
}

// IBroker moves publish requests between manager instances, typically
// over a Redis stream, so every instance sees every publish.
type IBroker[T any] interface {
	Start()
	Subscribe() <-chan T
	Publish(data T) error
	Close()
}

// IConnectionManager routes publishes to per-topic channels.
type IConnectionManager[T any] interface {
	// Start begins receiving and broadcasting. Call before anything else.
	Start()
	// Done stops the manager and releases every subscription.
	Done()
	// Subscribe registers a subscription on the named channel.
	Subscribe(channelName string) (<-chan T, error)
	// Publish pushes data to the named channel.
	Publish(channelName string, data T) error
	// Unsubscribe drops a subscription from the named channel.
	Unsubscribe(channelName string, ch <-chan T)
}
