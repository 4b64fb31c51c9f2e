package sse_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/leenicide/bread-made-easy/adapters/sse"
)

func TestChannel(t *testing.T) {
	ch := sse.NewChannel[Message]()

	sub := ch.Subscribe()
	assert.NotNil(t, sub)

	msg := Message{Data: "test message"}
	go ch.Broadcast(msg)

	select {
	case received := <-sub:
		assert.Equal(t, msg, received)
	case <-time.After(time.Second):
		t.Fatal("did not receive message in time")
	}

	ch.Unsubscribe(sub)
	_, ok := <-sub
	assert.False(t, ok, "channel should be closed")

	assert.True(t, ch.IsIdle(), "channel should be idle")
}

func TestChannel_MultipleSubscribers(t *testing.T) {
	ch := sse.NewChannel[Message]()

	sub1 := ch.Subscribe()
	sub2 := ch.Subscribe()
	assert.False(t, ch.IsIdle())

	msg := Message{Data: "fan out"}
	go ch.Broadcast(msg)

	for _, sub := range []<-chan Message{sub1, sub2} {
		select {
		case received := <-sub:
			assert.Equal(t, msg, received)
		case <-time.After(time.Second):
			t.Fatal("did not receive message in time")
		}
	}

	ch.UnsubscribeAll()
	_, ok := <-sub1
	assert.False(t, ok)
	_, ok = <-sub2
	assert.False(t, ok)
	assert.True(t, ch.IsIdle())
}
