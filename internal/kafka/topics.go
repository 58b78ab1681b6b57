package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"travyy/internal/logger"

	"github.com/segmentio/kafka-go"
)

const (
	TopicRefundStatus      = "travyy.refund.status"
	TopicPromotionRedeemed = "travyy.promotion.redeemed"
	TopicNotifications     = "travyy.notifications"
	TopicOTPSMS            = "travyy.sms.otp"
)

// RequiredTopics are created at boot.
var RequiredTopics = []string{
	TopicRefundStatus,
	TopicPromotionRedeemed,
	TopicNotifications,
	TopicOTPSMS,
}

// EnsureTopicsExist creates missing topics on the cluster controller.
func EnsureTopicsExist(ctx context.Context, brokers []string, topics []string, log *logger.Logger) error {
	if len(brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return err
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return err
	}
	controllerConn, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return err
	}
	defer controllerConn.Close()

	for _, topic := range topics {
		err = controllerConn.CreateTopics(kafka.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
		switch {
		case err == nil:
			log.LogKafka("CREATE", topic, "topic created")
		case errors.Is(err, kafka.TopicAlreadyExists):
			log.Debug("KAFKA", fmt.Sprintf("Topic %s already exists", topic))
		default:
			log.Error("KAFKA", fmt.Sprintf("Error creating topic %s: %v", topic, err))
		}
	}

	time.Sleep(500 * time.Millisecond)
	return nil
}
