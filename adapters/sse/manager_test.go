package sse_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"

	"github.com/leenicide/bread-made-easy/adapters/sse"
)

func TestConnectionManager(t *testing.T) {
	defer goleak.VerifyNone(t)

	cm := sse.NewConnectionManager[Message]()
	cm.Start()
	defer cm.Done()

	ch, err := cm.Subscribe("test_channel")
	assert.NoError(t, err)
	assert.NotNil(t, ch)

	msg := Message{Data: "test message"}
	err = cm.Publish("test_channel", msg)
	assert.NoError(t, err)

	select {
	case received := <-ch:
		assert.Equal(t, msg, received)
	case <-time.After(time.Second):
		t.Fatal("did not receive message in time")
	}

	cm.Unsubscribe("test_channel", ch)
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")
}

func TestConnectionManager_PublishWithoutSubscriber(t *testing.T) {
	defer goleak.VerifyNone(t)

	cm := sse.NewConnectionManager[Message]()
	cm.Start()
	defer cm.Done()

	// A publish to a channel nobody subscribed to is dropped quietly.
	err := cm.Publish("nobody_home", Message{Data: "ignored"})
	assert.NoError(t, err)
}

func TestConnectionManager_AfterDone(t *testing.T) {
	defer goleak.VerifyNone(t)

	cm := sse.NewConnectionManager[Message]()
	cm.Start()
	cm.Done()

	_, err := cm.Subscribe("test_channel")
	assert.Error(t, err)

	err = cm.Publish("test_channel", Message{Data: "late"})
	assert.Error(t, err)

	// Done is idempotent.
	cm.Done()
}
