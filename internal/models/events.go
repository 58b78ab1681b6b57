package models

import "time"

// Kafka payloads.

type RefundStatusEvent struct {
	RefundID  string       `json:"refund_id"`
	BookingID string       `json:"booking_id"`
	UserID    string       `json:"user_id"`
	Status    RefundStatus `json:"status"`
	Amount    float64      `json:"amount"`
	Provider  string       `json:"provider,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

type PromotionRedeemedEvent struct {
	PromotionID string    `json:"promotion_id"`
	Code        string    `json:"code"`
	UserID      string    `json:"user_id"`
	BookingID   string    `json:"booking_id,omitempty"`
	Discount    float64   `json:"discount"`
	UsageCount  int       `json:"usage_count"`
	Timestamp   time.Time `json:"timestamp"`
}

type NotificationEvent struct {
	UserID      string    `json:"user_id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	ReferenceID string    `json:"reference_id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

type OTPMessage struct {
	Phone     string    `json:"phone"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}
