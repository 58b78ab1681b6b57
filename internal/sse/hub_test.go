package sse

import (
	"context"
	"testing"
	"time"

	"travyy/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_DeliversToOwnerOnly(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mine := hub.Subscribe(ctx, "u1")
	other := hub.Subscribe(ctx, "u2")

	assert.Equal(t, 1, hub.Publish(models.Notification{ID: "n1", UserID: "u1"}))

	select {
	case n := <-mine:
		assert.Equal(t, "n1", n.ID)
	case <-time.After(time.Second):
		t.Fatal("notification not delivered")
	}
	assert.Empty(t, other)
}

func TestHub_UnsubscribesOnCancel(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())

	ch := hub.Subscribe(ctx, "u1")
	require.Equal(t, 1, hub.ClientCount("u1"))

	cancel()
	require.Eventually(t, func() bool { return hub.ClientCount("u1") == 0 }, time.Second, 10*time.Millisecond)

	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, hub.Publish(models.Notification{UserID: "u1"}))
}

func TestHub_SlowClientDoesNotBlock(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub.Subscribe(ctx, "u1")

	for i := 0; i < clientBuffer; i++ {
		require.Equal(t, 1, hub.Publish(models.Notification{UserID: "u1"}))
	}
	assert.Zero(t, hub.Publish(models.Notification{UserID: "u1"}))
}
