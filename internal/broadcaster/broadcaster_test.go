package broadcaster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishOrder(t *testing.T) {
	b := New[int]()
	sub, err := b.Subscribe(10)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		assert.Equal(t, 1, b.Publish(i))
	}
	for i := 0; i < 5; i++ {
		assert.Equal(t, i, <-sub.C)
	}
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	b := New[int]()
	slow, err := b.Subscribe(1)
	require.NoError(t, err)
	fast, err := b.Subscribe(10)
	require.NoError(t, err)

	assert.Equal(t, 2, b.Publish(1))
	assert.Equal(t, 1, b.Publish(2))
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, int64(1), b.Dropped())

	assert.Equal(t, 1, <-slow.C)
	_, ok := <-slow.C
	assert.False(t, ok)

	assert.Equal(t, 1, <-fast.C)
	assert.Equal(t, 2, <-fast.C)
}

func TestUnsubscribe(t *testing.T) {
	b := New[string]()
	sub, err := b.Subscribe(1)
	require.NoError(t, err)
	sub.Unsubscribe()
	sub.Unsubscribe()

	_, ok := <-sub.C
	assert.False(t, ok)
	assert.Equal(t, 0, b.Publish("x"))
	assert.Equal(t, int64(0), b.Dropped())
}

func TestClose(t *testing.T) {
	b := New[int]()
	subs := make([]*Subscription[int], 3)
	for i := range subs {
		sub, err := b.Subscribe(1)
		require.NoError(t, err)
		subs[i] = sub
	}
	b.Close()
	b.Close()
	for _, sub := range subs {
		_, ok := <-sub.C
		assert.False(t, ok)
		sub.Unsubscribe()
	}
	_, err := b.Subscribe(1)
	assert.Equal(t, ErrClosed, err)
	assert.Equal(t, 0, b.Len())
}
