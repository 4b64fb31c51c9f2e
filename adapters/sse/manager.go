package sse

import (
	"context"
	"log/slog"
	"sync"
)

// connectionManager routes published messages to per-topic channels.
// With a broker configured, publishes travel through a Redis stream so
// every running instance broadcasts the same events; without one the
// manager dispatches locally, which is enough for a single instance and
// for tests.
type connectionManager[T any] struct {
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	mu     sync.RWMutex
	wg     sync.WaitGroup
	active bool

	broker   IBroker[PublishRequest[T]]
	local    chan PublishRequest[T]
	channels map[string]IChannel[T]
}

type ManagerOptions[T any] struct {
	logger *slog.Logger
	broker IBroker[PublishRequest[T]]
}

type ManagerOption[T any] func(*ManagerOptions[T])

func WithManagerLogger[T any](logger *slog.Logger) ManagerOption[T] {
	return func(o *ManagerOptions[T]) {
		o.logger = logger
	}
}

// WithManagerBroker routes publishes through the given broker instead of
// dispatching them locally.
func WithManagerBroker[T any](broker IBroker[PublishRequest[T]]) ManagerOption[T] {
	return func(o *ManagerOptions[T]) {
		o.broker = broker
	}
}

func NewConnectionManager[T any](opts ...ManagerOption[T]) IConnectionManager[T] {
	options := ManagerOptions[T]{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &connectionManager[T]{
		ctx:      ctx,
		cancel:   cancel,
		logger:   options.logger.With(slog.String("caller", "ConnectionManager")),
		channels: make(map[string]IChannel[T]),
		broker:   options.broker,
		local:    make(chan PublishRequest[T], 100),
		active:   true,
	}
}

// Start begins receiving and broadcasting messages.
func (cm *connectionManager[T]) Start() {
	if cm.broker != nil {
		cm.broker.Start()
		cm.wg.Add(1)
		go func() {
			defer cm.wg.Done()
			for msg := range cm.broker.Subscribe() {
				cm.broadcast(msg)
			}
		}()
		return
	}

	cm.wg.Add(1)
	go func() {
		defer cm.wg.Done()
		for {
			select {
			case <-cm.ctx.Done():
				return
			case msg := <-cm.local:
				cm.broadcast(msg)
			}
		}
	}()
}

func (cm *connectionManager[T]) broadcast(msg PublishRequest[T]) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if channel, ok := cm.channels[msg.Channel]; ok {
		channel.Broadcast(msg.Message)
	}
}

// Done stops the manager and closes every subscription. The lock is
// released before waiting on the dispatch goroutine, which needs it to
// broadcast.
func (cm *connectionManager[T]) Done() {
	cm.mu.Lock()
	if !cm.active {
		cm.mu.Unlock()
		return
	}
	cm.active = false
	cm.cancel()
	cm.mu.Unlock()

	if cm.broker != nil {
		cm.broker.Close()
	}
	cm.wg.Wait()

	cm.mu.Lock()
	defer cm.mu.Unlock()
	for _, channel := range cm.channels {
		channel.UnsubscribeAll()
	}
	clear(cm.channels)
}

func (cm *connectionManager[T]) Subscribe(channelName string) (<-chan T, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if !cm.active {
		return nil, context.Canceled
	}

	c, ok := cm.channels[channelName]
	if !ok {
		c = NewChannel[T]()
		cm.channels[channelName] = c
	}
	return c.Subscribe(), nil
}

func (cm *connectionManager[T]) Publish(channelName string, data T) error {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if !cm.active {
		return context.Canceled
	}

	req := PublishRequest[T]{
		Channel: channelName,
		Message: data,
	}

	if cm.broker != nil {
		return cm.broker.Publish(req)
	}

	select {
	case cm.local <- req:
		return nil
	case <-cm.ctx.Done():
		return context.Canceled
	}
}

func (cm *connectionManager[T]) Unsubscribe(channelName string, ch <-chan T) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	c, ok := cm.channels[channelName]
	if !ok {
		return
	}

	c.Unsubscribe(ch)
	if c.IsIdle() {
		delete(cm.channels, channelName)
	}
}
