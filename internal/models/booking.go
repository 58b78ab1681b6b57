package models

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingRefunded  BookingStatus = "refunded"
)

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID             string        `bun:"id,pk" json:"id"`
	UserID         string        `bun:"user_id,notnull" json:"userId"`
	TourID         string        `bun:"tour_id,notnull" json:"tourId"`
	TourName       string        `bun:"tour_name" json:"tourName"`
	TotalAmount    float64       `bun:"total_amount,notnull" json:"totalAmount"`
	DiscountAmount float64       `bun:"discount_amount,notnull,default:0" json:"discountAmount"`
	PromotionCode  string        `bun:"promotion_code,nullzero" json:"promotionCode,omitempty"`
	Status         BookingStatus `bun:"status,notnull" json:"status"`
	Payment        PaymentInfo   `bun:"embed:payment_" json:"payment"`
	CreatedAt      time.Time     `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt      time.Time     `bun:"updated_at,notnull" json:"updatedAt"`
}

// AmountPaid is what the customer was charged after discounts.
func (b *Booking) AmountPaid() float64 {
	return b.TotalAmount - b.DiscountAmount
}

// PaymentInfo is the payment sub-record written when a booking is paid.
type PaymentInfo struct {
	Provider      string                 `bun:"provider" json:"provider"`
	OrderID       string                 `bun:"order_id" json:"orderId,omitempty"`
	TransactionID string                 `bun:"transaction_id" json:"transactionId,omitempty"`
	ProviderData  map[string]interface{} `bun:"provider_data,type:jsonb" json:"providerData,omitempty"`
}

// DataString returns a provider payload field as a string, or "".
func (p PaymentInfo) DataString(key string) string {
	if p.ProviderData == nil {
		return ""
	}
	switch v := p.ProviderData[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprint(v)
	}
}
