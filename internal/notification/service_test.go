package notification_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"travyy/internal/database/dbtest"
	"travyy/internal/logger"
	"travyy/internal/models"
	"travyy/internal/notification"
	"travyy/internal/notification/db"
	"travyy/internal/sse"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*notification.Service, *sse.Hub) {
	t.Helper()
	hub := sse.NewHub()
	return notification.NewService(&db.DB{Bun: dbtest.New(t)}, hub, logger.NewDiscardLogger()), hub
}

func message(t *testing.T, v interface{}) kafka.Message {
	t.Helper()
	value, err := json.Marshal(v)
	require.NoError(t, err)
	return kafka.Message{Topic: "travyy.notifications", Value: value}
}

func TestHandleMessage_StoresAndStreams(t *testing.T) {
	svc, hub := newService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	live := hub.Subscribe(ctx, "user-1")

	ts := time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)
	err := svc.HandleMessage(ctx, message(t, models.NotificationEvent{
		UserID:      "user-1",
		Type:        "refund",
		Title:       "Cập nhật hoàn tiền",
		Message:     "Hoàn tiền của bạn đã hoàn tất (500.000đ)",
		ReferenceID: "rf-1",
		Timestamp:   ts,
	}))
	require.NoError(t, err)

	select {
	case n := <-live:
		assert.Equal(t, "rf-1", n.ReferenceID)
	case <-time.After(time.Second):
		t.Fatal("notification not streamed")
	}

	list, total, err := svc.List(ctx, "user-1", false, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "refund", list[0].Type)
	assert.True(t, list[0].CreatedAt.Equal(ts))
	assert.False(t, list[0].Read)
}

func TestHandleMessage_SkipsBadPayloads(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	assert.NoError(t, svc.HandleMessage(ctx, kafka.Message{Value: []byte("{not json")}))
	assert.NoError(t, svc.HandleMessage(ctx, message(t, models.NotificationEvent{Title: "no user"})))

	_, total, err := svc.List(ctx, "", false, 1, 20)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestMarkRead_OwnerOnly(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	n, err := svc.Deliver(ctx, models.NotificationEvent{UserID: "user-1", Type: "promotion", Title: "Ưu đãi mới"})
	require.NoError(t, err)
	_, err = svc.Deliver(ctx, models.NotificationEvent{UserID: "user-1", Type: "promotion", Title: "Ưu đãi khác"})
	require.NoError(t, err)

	assert.ErrorIs(t, svc.MarkRead(ctx, "user-2", n.ID), notification.ErrNotFound)
	require.NoError(t, svc.MarkRead(ctx, "user-1", n.ID))

	unread, err := svc.UnreadCount(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	list, total, err := svc.List(ctx, "user-1", true, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "Ưu đãi khác", list[0].Title)
}
