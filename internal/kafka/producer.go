package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"travyy/internal/logger"

	"github.com/segmentio/kafka-go"
)

// Publisher is what services depend on. Producer and NoopPublisher satisfy it.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

type Producer struct {
	writer *kafka.Writer
	logger *logger.Logger
}

// NewProducer returns a producer that routes each message by its own topic.
func NewProducer(brokers []string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: writer, logger: log}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, value []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		p.logger.Error("KAFKA", fmt.Sprintf("Publish to %s failed: %v", topic, err))
		return err
	}
	p.logger.LogKafka("PUBLISH", topic, key)
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// NoopPublisher logs events instead of sending them. Used when Kafka is disabled.
type NoopPublisher struct {
	Logger *logger.Logger
}

func (n NoopPublisher) Publish(_ context.Context, topic, key string, value []byte) error {
	if n.Logger != nil {
		n.Logger.Debug("KAFKA", fmt.Sprintf("[DISABLED] %s key=%s %s", topic, key, string(value)))
	}
	return nil
}

// PublishJSON marshals v and publishes it under key.
func PublishJSON(ctx context.Context, p Publisher, topic, key string, v interface{}) error {
	msgBytes, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}
	return p.Publish(ctx, topic, key, msgBytes)
}

// LocalPublisher hands messages for registered topics straight to their
// handlers in-process. Other topics are logged and dropped. Used when Kafka is
// disabled so consumers of the app's own events still run.
type LocalPublisher struct {
	handlers map[string]MessageHandler
	logger   *logger.Logger
}

func NewLocalPublisher(log *logger.Logger) *LocalPublisher {
	return &LocalPublisher{handlers: make(map[string]MessageHandler), logger: log}
}

// Handle registers h for topic. Call before the publisher is shared.
func (p *LocalPublisher) Handle(topic string, h MessageHandler) {
	p.handlers[topic] = h
}

func (p *LocalPublisher) Publish(ctx context.Context, topic, key string, value []byte) error {
	h, ok := p.handlers[topic]
	if !ok {
		return NoopPublisher{Logger: p.logger}.Publish(ctx, topic, key, value)
	}
	return h(ctx, kafka.Message{Topic: topic, Key: []byte(key), Value: value, Time: time.Now()})
}
