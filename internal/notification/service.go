package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"travyy/internal/logger"
	"travyy/internal/models"
	"travyy/internal/utils"

	"github.com/segmentio/kafka-go"
)

type Store interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, page, limit int) ([]models.Notification, int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, id string) error
}

// Broadcaster pushes a stored notification to connected clients.
type Broadcaster interface {
	Publish(n models.Notification) int
}

type Service struct {
	store  Store
	live   Broadcaster
	logger *logger.Logger
	now    func() time.Time
}

func NewService(store Store, live Broadcaster, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		live:   live,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// HandleMessage consumes one notifications-topic record. Malformed payloads are
// logged and skipped so they do not block the partition.
func (s *Service) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var event models.NotificationEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		s.logger.Warn("NOTIFICATION", fmt.Sprintf("Skipping malformed message at offset %d: %v", msg.Offset, err))
		return nil
	}
	if event.UserID == "" {
		s.logger.Warn("NOTIFICATION", fmt.Sprintf("Skipping message without user at offset %d", msg.Offset))
		return nil
	}
	_, err := s.Deliver(ctx, event)
	return err
}

// Deliver stores event in the user's inbox and pushes it to open streams.
func (s *Service) Deliver(ctx context.Context, event models.NotificationEvent) (*models.Notification, error) {
	created := event.Timestamp
	if created.IsZero() {
		created = s.now()
	}
	n := &models.Notification{
		ID:          utils.GenerateID(),
		UserID:      event.UserID,
		Type:        event.Type,
		Title:       event.Title,
		Message:     event.Message,
		ReferenceID: event.ReferenceID,
		CreatedAt:   created.UTC(),
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("store notification: %w", err)
	}
	if s.live != nil {
		s.live.Publish(*n)
	}
	return n, nil
}

func (s *Service) List(ctx context.Context, userID string, unreadOnly bool, page, limit int) ([]models.Notification, int, error) {
	return s.store.ListNotifications(ctx, userID, unreadOnly, page, limit)
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	return s.store.CountUnread(ctx, userID)
}

// MarkRead only touches notifications owned by userID.
func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	return s.store.MarkRead(ctx, userID, id)
}
