package models

import (
	"time"

	"github.com/uptrace/bun"
)

type PromotionType string

const (
	PromotionPercentage PromotionType = "percentage"
	PromotionFixed      PromotionType = "fixed"
)

type PromotionStatus string

const (
	PromotionActive   PromotionStatus = "active"
	PromotionInactive PromotionStatus = "inactive"
	PromotionExpired  PromotionStatus = "expired"
)

type Promotion struct {
	bun.BaseModel `bun:"table:promotions"`

	ID            string          `bun:"id,pk" json:"id"`
	Code          string          `bun:"code,unique,notnull" json:"code"`
	Description   string          `bun:"description" json:"description"`
	Type          PromotionType   `bun:"type,notnull" json:"type"`
	Value         float64         `bun:"value,notnull" json:"value"`
	MinOrderValue float64         `bun:"min_order_value,notnull,default:0" json:"minOrderValue"`
	MaxDiscount   *float64        `bun:"max_discount" json:"maxDiscount,omitempty"`
	StartDate     time.Time       `bun:"start_date,notnull" json:"startDate"`
	EndDate       time.Time       `bun:"end_date,notnull" json:"endDate"`
	UsageLimit    *int            `bun:"usage_limit" json:"usageLimit,omitempty"`
	UsageCount    int             `bun:"usage_count,notnull,default:0" json:"usageCount"`
	Status        PromotionStatus `bun:"status,notnull" json:"status"`
	CreatedBy     string          `bun:"created_by,nullzero" json:"createdBy,omitempty"`
	CreatedAt     time.Time       `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt     time.Time       `bun:"updated_at,notnull" json:"updatedAt"`
}

// PromotionSummary is the public view. Usage counters and authorship stay private.
type PromotionSummary struct {
	ID            string        `json:"id"`
	Code          string        `json:"code"`
	Description   string        `json:"description"`
	Type          PromotionType `json:"type"`
	Value         float64       `json:"value"`
	MinOrderValue float64       `json:"minOrderValue"`
	MaxDiscount   *float64      `json:"maxDiscount,omitempty"`
	StartDate     time.Time     `json:"startDate"`
	EndDate       time.Time     `json:"endDate"`
}

func (p *Promotion) Summary() PromotionSummary {
	return PromotionSummary{
		ID:            p.ID,
		Code:          p.Code,
		Description:   p.Description,
		Type:          p.Type,
		Value:         p.Value,
		MinOrderValue: p.MinOrderValue,
		MaxDiscount:   p.MaxDiscount,
		StartDate:     p.StartDate,
		EndDate:       p.EndDate,
	}
}

// UserPromotion records one redemption. (user_id, promotion_id) is unique.
type UserPromotion struct {
	bun.BaseModel `bun:"table:user_promotions"`

	ID          string    `bun:"id,pk" json:"id"`
	UserID      string    `bun:"user_id,notnull,unique:user_promotion" json:"userId"`
	PromotionID string    `bun:"promotion_id,notnull,unique:user_promotion" json:"promotionId"`
	Code        string    `bun:"code,notnull" json:"code"`
	BookingID   string    `bun:"booking_id,nullzero" json:"bookingId,omitempty"`
	UsedAt      time.Time `bun:"used_at,notnull" json:"usedAt"`
}

type PromotionInput struct {
	Code          string    `json:"code"`
	Description   string    `json:"description"`
	Type          string    `json:"type"`
	Value         float64   `json:"value"`
	MinOrderValue float64   `json:"minOrderValue"`
	MaxDiscount   *float64  `json:"maxDiscount"`
	StartDate     time.Time `json:"startDate"`
	EndDate       time.Time `json:"endDate"`
	UsageLimit    *int      `json:"usageLimit"`
	Status        string    `json:"status"`
}

type PromotionFilter struct {
	Status string
	Search string
	Page   int
	Limit  int
}

// PromotionValidation is returned by checkout validation.
type PromotionValidation struct {
	Valid      bool              `json:"valid"`
	Message    string            `json:"message,omitempty"`
	Promotion  *PromotionSummary `json:"promotion,omitempty"`
	Discount   float64           `json:"discount"`
	FinalTotal float64           `json:"finalTotal"`
}
