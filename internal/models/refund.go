package models

import (
	"time"

	"github.com/uptrace/bun"
)

type RefundStatus string

const (
	RefundPending        RefundStatus = "pending"
	RefundApproved       RefundStatus = "approved"
	RefundRejected       RefundStatus = "rejected"
	RefundManualRequired RefundStatus = "manual_required"
	RefundManualPending  RefundStatus = "manual_pending"
	RefundCompleted      RefundStatus = "completed"
	RefundExpired        RefundStatus = "expired"
)

// Open refunds block a second request for the same booking.
func (s RefundStatus) Open() bool {
	switch s {
	case RefundPending, RefundApproved, RefundManualRequired, RefundManualPending:
		return true
	}
	return false
}

type Refund struct {
	bun.BaseModel `bun:"table:refunds"`

	ID                  string       `bun:"id,pk" json:"id"`
	BookingID           string       `bun:"booking_id,notnull" json:"bookingId"`
	UserID              string       `bun:"user_id,notnull" json:"userId"`
	Amount              float64      `bun:"amount,notnull" json:"amount"`
	Reason              string       `bun:"reason" json:"reason"`
	Status              RefundStatus `bun:"status,notnull" json:"status"`
	Provider            string       `bun:"provider,nullzero" json:"provider,omitempty"`
	TransactionID       string       `bun:"transaction_id,nullzero" json:"transactionId,omitempty"`
	IsSimulated         bool         `bun:"is_simulated,notnull,default:false" json:"isSimulated"`
	RequiresManual      bool         `bun:"requires_manual,notnull,default:false" json:"requiresManualProcessing"`
	GatewayError        string       `bun:"gateway_error,nullzero" json:"gatewayError,omitempty"`
	ReviewNote          string       `bun:"review_note,nullzero" json:"reviewNote,omitempty"`
	ReviewedBy          string       `bun:"reviewed_by,nullzero" json:"reviewedBy,omitempty"`
	ReviewedAt          *time.Time   `bun:"reviewed_at" json:"reviewedAt,omitempty"`
	ProcessedAt         *time.Time   `bun:"processed_at" json:"processedAt,omitempty"`
	ManualPaymentRef    string       `bun:"manual_payment_ref,nullzero" json:"manualPaymentRef,omitempty"`
	ManualPaymentMethod string       `bun:"manual_payment_method,nullzero" json:"manualPaymentMethod,omitempty"`
	ManualPaidAt        *time.Time   `bun:"manual_paid_at" json:"manualPaidAt,omitempty"`
	CreatedAt           time.Time    `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt           time.Time    `bun:"updated_at,notnull" json:"updatedAt"`

	// Processing is set when a gateway call for this refund is in flight.
	Processing bool `bun:"-" json:"processing"`
}

type RefundRequest struct {
	BookingID string  `json:"bookingId"`
	Amount    float64 `json:"amount"`
	Reason    string  `json:"reason"`
}

type RefundFilter struct {
	Status string
	UserID string
	Page   int
	Limit  int
}

// RefundOutcome is the normalized result of a gateway refund attempt.
type RefundOutcome struct {
	Success                  bool    `json:"success"`
	Provider                 string  `json:"provider"`
	TransactionID            string  `json:"transactionId,omitempty"`
	Amount                   float64 `json:"amount,omitempty"`
	Currency                 string  `json:"currency,omitempty"`
	ResultCode               int     `json:"resultCode,omitempty"`
	Status                   string  `json:"status,omitempty"`
	IsSimulated              bool    `json:"isSimulated,omitempty"`
	RequiresManualProcessing bool    `json:"requiresManualProcessing,omitempty"`
	Message                  string  `json:"message,omitempty"`
	Error                    string  `json:"error,omitempty"`
}
