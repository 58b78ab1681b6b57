package promotion

import (
	"testing"
	"time"

	"travyy/internal/models"

	"github.com/stretchr/testify/assert"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func activePromotion(now time.Time) *models.Promotion {
	return &models.Promotion{
		ID:        "p1",
		Code:      "SUMMER10",
		Type:      models.PromotionPercentage,
		Value:     10,
		Status:    models.PromotionActive,
		StartDate: now.Add(-24 * time.Hour),
		EndDate:   now.Add(24 * time.Hour),
	}
}

func TestCalculateDiscount_PercentageCappedByMaxDiscount(t *testing.T) {
	now := time.Now().UTC()
	p := activePromotion(now)
	p.MaxDiscount = floatPtr(50000)

	assert.Equal(t, 50000.0, CalculateDiscount(p, 1000000, now))
}

func TestCalculateDiscount_PercentageUncapped(t *testing.T) {
	now := time.Now().UTC()
	p := activePromotion(now)

	assert.Equal(t, 100000.0, CalculateDiscount(p, 1000000, now))
}

func TestCalculateDiscount_FixedCappedAtOrderTotal(t *testing.T) {
	now := time.Now().UTC()
	p := activePromotion(now)
	p.Type = models.PromotionFixed
	p.Value = 200000

	assert.Equal(t, 100000.0, CalculateDiscount(p, 100000, now))
}

func TestCalculateDiscount_ZeroWhenPreconditionsFail(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name   string
		mutate func(p *models.Promotion)
		total  float64
	}{
		{"inactive", func(p *models.Promotion) { p.Status = models.PromotionInactive }, 1000000},
		{"not started", func(p *models.Promotion) { p.StartDate = now.Add(time.Hour) }, 1000000},
		{"ended", func(p *models.Promotion) { p.EndDate = now.Add(-time.Hour) }, 1000000},
		{"limit reached", func(p *models.Promotion) { p.UsageLimit = intPtr(5); p.UsageCount = 5 }, 1000000},
		{"below minimum", func(p *models.Promotion) { p.MinOrderValue = 500000 }, 499999},
		{"unknown type", func(p *models.Promotion) { p.Type = "bogo" }, 1000000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := activePromotion(now)
			tt.mutate(p)
			assert.Zero(t, CalculateDiscount(p, tt.total, now))
		})
	}
}

func TestCalculateDiscount_WindowBoundsInclusive(t *testing.T) {
	now := time.Now().UTC()
	p := activePromotion(now)

	assert.Equal(t, 10000.0, CalculateDiscount(p, 100000, p.StartDate))
	assert.Equal(t, 10000.0, CalculateDiscount(p, 100000, p.EndDate))
}

func TestCalculateDiscount_PureAndIdempotent(t *testing.T) {
	now := time.Now().UTC()
	p := activePromotion(now)
	p.UsageLimit = intPtr(10)
	p.UsageCount = 3
	before := *p

	first := CalculateDiscount(p, 750000, now)
	second := CalculateDiscount(p, 750000, now)

	assert.Equal(t, first, second)
	assert.Equal(t, before, *p)
}

func TestCalculateDiscount_NeverExceedsTotal(t *testing.T) {
	now := time.Now().UTC()
	p := activePromotion(now)
	p.Value = 150

	assert.Equal(t, 80000.0, CalculateDiscount(p, 80000, now))
}
