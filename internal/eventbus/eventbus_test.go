package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	b.Publish("hello")
	assert.Equal(t, "hello", <-sub)
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := New()
	_ = b.Subscribe()
	for i := 0; i < subscriberBuffer+5; i++ {
		b.Publish(i)
	}
	assert.Equal(t, int64(5), b.Dropped())
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	b.Unsubscribe(sub)
	_, ok := <-sub
	assert.False(t, ok)
	b.Publish("ignored")
}

func TestCloseIsIdempotent(t *testing.T) {
	b := New()
	sub := b.Subscribe()
	b.Close()
	b.Close()
	_, ok := <-sub
	require.False(t, ok)

	post := b.Subscribe()
	_, ok = <-post
	assert.False(t, ok, "subscribing after close yields a closed channel")
}
