package kafka

import (
	"context"
	"errors"
	"fmt"

	"travyy/internal/logger"

	"github.com/segmentio/kafka-go"
)

// MessageHandler processes one message. Returning an error leaves the offset uncommitted.
type MessageHandler func(ctx context.Context, msg kafka.Message) error

type Consumer struct {
	reader *kafka.Reader
	topic  string
	logger *logger.Logger
}

func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader, topic: topic, logger: log}
}

// Start blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, handler MessageHandler) {
	c.logger.LogKafka("CONSUME", c.topic, "consumer started")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				c.logger.LogKafka("CONSUME", c.topic, "consumer stopped")
				return
			}
			c.logger.Error("KAFKA", fmt.Sprintf("Error reading from %s: %v", c.topic, err))
			continue
		}

		if err := handler(ctx, msg); err != nil {
			c.logger.Error("KAFKA", fmt.Sprintf("Handler failed for %s offset %d: %v", c.topic, msg.Offset, err))
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Warn("KAFKA", fmt.Sprintf("Commit failed for %s offset %d: %v", c.topic, msg.Offset, err))
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
