package promotion

import (
	"time"

	"travyy/internal/models"
)

// InWindow reports whether now falls inside [StartDate, EndDate].
func InWindow(p *models.Promotion, now time.Time) bool {
	return !now.Before(p.StartDate) && !now.After(p.EndDate)
}

// HasUsesRemaining is false once UsageCount reaches a set UsageLimit.
func HasUsesRemaining(p *models.Promotion) bool {
	return p.UsageLimit == nil || p.UsageCount < *p.UsageLimit
}

// CalculateDiscount returns the discount p grants on orderTotal at now.
// Any failed precondition yields 0. The result never exceeds orderTotal.
func CalculateDiscount(p *models.Promotion, orderTotal float64, now time.Time) float64 {
	if p == nil || p.Status != models.PromotionActive || !InWindow(p, now) {
		return 0
	}
	if !HasUsesRemaining(p) {
		return 0
	}
	if orderTotal < p.MinOrderValue {
		return 0
	}

	var discount float64
	switch p.Type {
	case models.PromotionPercentage:
		discount = orderTotal * p.Value / 100
		if p.MaxDiscount != nil && discount > *p.MaxDiscount {
			discount = *p.MaxDiscount
		}
	case models.PromotionFixed:
		discount = p.Value
	default:
		return 0
	}

	if discount > orderTotal {
		discount = orderTotal
	}
	if discount < 0 {
		return 0
	}
	return discount
}
