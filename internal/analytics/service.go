package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"travyy/internal/logger"
	"travyy/internal/utils"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

const (
	MaxRevenueDays     = 365
	DefaultRevenueDays = 30
	cachePrefix        = "dashboard:"
)

type Store interface {
	UserCounts(ctx context.Context) (map[string]int, int, error)
	BookingCounts(ctx context.Context) (map[string]int, int, error)
	RefundCounts(ctx context.Context) (map[string]int, int, error)
	GrossRevenue(ctx context.Context) (float64, error)
	RefundedAmount(ctx context.Context) (float64, error)
	PromotionCounts(ctx context.Context, now time.Time) (active, redemptions int, err error)
	PaidBookingsSince(ctx context.Context, since time.Time) ([]PaidBookingRow, error)
	TopPromotions(ctx context.Context, limit int) ([]PromotionUsage, error)
}

type CountBreakdown struct {
	Total int            `json:"total"`
	By    map[string]int `json:"by"`
}

type RevenueSummary struct {
	Gross    float64 `json:"gross"`
	Refunded float64 `json:"refunded"`
	Net      float64 `json:"net"`
}

type PromotionSummary struct {
	Active      int `json:"active"`
	Redemptions int `json:"redemptions"`
}

type Overview struct {
	Users       CountBreakdown   `json:"users"`
	Bookings    CountBreakdown   `json:"bookings"`
	Refunds     CountBreakdown   `json:"refunds"`
	Revenue     RevenueSummary   `json:"revenue"`
	Promotions  PromotionSummary `json:"promotions"`
	GeneratedAt time.Time        `json:"generatedAt"`
}

type DailyRevenue struct {
	Date     string  `json:"date"`
	Revenue  float64 `json:"revenue"`
	Bookings int     `json:"bookings"`
}

type PromotionUsage struct {
	ID            string  `bun:"id" json:"id"`
	Code          string  `bun:"code" json:"code"`
	Status        string  `bun:"status" json:"status"`
	UsageCount    int     `bun:"usage_count" json:"usageCount"`
	UsageLimit    *int    `bun:"usage_limit" json:"usageLimit"`
	TotalDiscount float64 `bun:"total_discount" json:"totalDiscount"`
}

// Service builds the admin dashboard. Results are cached in Redis for ttl
// when a client is configured.
type Service struct {
	store  Store
	redis  *redis.Client
	ttl    time.Duration
	logger *logger.Logger
	now    func() time.Time
}

func NewService(store Store, rdb *redis.Client, ttl time.Duration, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		redis:  rdb,
		ttl:    ttl,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	var out Overview
	if s.cached(ctx, "overview", &out) {
		return &out, nil
	}

	var err error
	if out.Users.By, out.Users.Total, err = s.store.UserCounts(ctx); err != nil {
		return nil, fmt.Errorf("user counts: %w", err)
	}
	if out.Bookings.By, out.Bookings.Total, err = s.store.BookingCounts(ctx); err != nil {
		return nil, fmt.Errorf("booking counts: %w", err)
	}
	if out.Refunds.By, out.Refunds.Total, err = s.store.RefundCounts(ctx); err != nil {
		return nil, fmt.Errorf("refund counts: %w", err)
	}
	if out.Revenue.Gross, err = s.store.GrossRevenue(ctx); err != nil {
		return nil, fmt.Errorf("gross revenue: %w", err)
	}
	if out.Revenue.Refunded, err = s.store.RefundedAmount(ctx); err != nil {
		return nil, fmt.Errorf("refunded amount: %w", err)
	}
	out.Revenue.Net, _ = decimal.NewFromFloat(out.Revenue.Gross).
		Sub(decimal.NewFromFloat(out.Revenue.Refunded)).
		Float64()

	now := s.now()
	if out.Promotions.Active, out.Promotions.Redemptions, err = s.store.PromotionCounts(ctx, now); err != nil {
		return nil, fmt.Errorf("promotion counts: %w", err)
	}
	out.GeneratedAt = now

	s.remember(ctx, "overview", out)
	return &out, nil
}

// Revenue returns one entry per UTC day for the last days days, today
// included, with empty days zero-filled.
func (s *Service) Revenue(ctx context.Context, days int) ([]DailyRevenue, error) {
	if days <= 0 {
		days = DefaultRevenueDays
	}
	if days > MaxRevenueDays {
		days = MaxRevenueDays
	}

	key := fmt.Sprintf("revenue:%d", days)
	var out []DailyRevenue
	if s.cached(ctx, key, &out) {
		return out, nil
	}

	start := utils.StartOfDay(s.now()).AddDate(0, 0, -(days - 1))
	rows, err := s.store.PaidBookingsSince(ctx, start)
	if err != nil {
		return nil, fmt.Errorf("paid bookings: %w", err)
	}

	totals := make(map[string]decimal.Decimal, days)
	counts := make(map[string]int, days)
	for _, r := range rows {
		day := r.CreatedAt.UTC().Format("2006-01-02")
		totals[day] = totals[day].Add(decimal.NewFromFloat(r.AmountPaid))
		counts[day]++
	}

	out = make([]DailyRevenue, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		revenue, _ := totals[day].Float64()
		out = append(out, DailyRevenue{Date: day, Revenue: revenue, Bookings: counts[day]})
	}

	s.remember(ctx, key, out)
	return out, nil
}

func (s *Service) TopPromotions(ctx context.Context, limit int) ([]PromotionUsage, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.store.TopPromotions(ctx, limit)
}

func (s *Service) cached(ctx context.Context, key string, dst interface{}) bool {
	if s.redis == nil || s.ttl <= 0 {
		return false
	}
	raw, err := s.redis.Get(ctx, cachePrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("ANALYTICS", fmt.Sprintf("Cache read %s failed: %v", key, err))
		}
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func (s *Service) remember(ctx context.Context, key string, v interface{}) {
	if s.redis == nil || s.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, cachePrefix+key, raw, s.ttl).Err(); err != nil {
		s.logger.Warn("ANALYTICS", fmt.Sprintf("Cache write %s failed: %v", key, err))
	}
}
