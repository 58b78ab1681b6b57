package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"travyy/internal/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	topic string
	key   string
	value []byte
	err   error
}

func (c *capturePublisher) Publish(_ context.Context, topic, key string, value []byte) error {
	c.topic, c.key, c.value = topic, key, value
	return c.err
}

func TestPublishJSON(t *testing.T) {
	p := &capturePublisher{}

	err := PublishJSON(context.Background(), p, TopicRefundStatus, "rf_1", map[string]string{"status": "completed"})
	require.NoError(t, err)

	assert.Equal(t, TopicRefundStatus, p.topic)
	assert.Equal(t, "rf_1", p.key)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(p.value, &decoded))
	assert.Equal(t, "completed", decoded["status"])
}

func TestPublishJSON_PropagatesError(t *testing.T) {
	p := &capturePublisher{err: errors.New("broker down")}
	err := PublishJSON(context.Background(), p, TopicNotifications, "u1", struct{}{})
	assert.EqualError(t, err, "broker down")
}

func TestPublishJSON_MarshalError(t *testing.T) {
	p := &capturePublisher{}
	err := PublishJSON(context.Background(), p, TopicNotifications, "u1", make(chan int))
	assert.Error(t, err)
	assert.Empty(t, p.topic)
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{Logger: logger.NewDiscardLogger()}
	assert.NoError(t, p.Publish(context.Background(), TopicOTPSMS, "k", []byte("{}")))
}

func TestLocalPublisher_RoutesRegisteredTopics(t *testing.T) {
	p := NewLocalPublisher(logger.NewDiscardLogger())

	var got kafka.Message
	p.Handle(TopicNotifications, func(_ context.Context, msg kafka.Message) error {
		got = msg
		return nil
	})

	require.NoError(t, p.Publish(context.Background(), TopicNotifications, "u1", []byte(`{"title":"x"}`)))
	assert.Equal(t, TopicNotifications, got.Topic)
	assert.Equal(t, "u1", string(got.Key))
	assert.JSONEq(t, `{"title":"x"}`, string(got.Value))

	assert.NoError(t, p.Publish(context.Background(), TopicOTPSMS, "p", []byte("{}")))
}

func TestLocalPublisher_PropagatesHandlerError(t *testing.T) {
	p := NewLocalPublisher(logger.NewDiscardLogger())
	p.Handle(TopicRefundStatus, func(context.Context, kafka.Message) error { return errors.New("db down") })

	assert.EqualError(t, p.Publish(context.Background(), TopicRefundStatus, "r", nil), "db down")
}
