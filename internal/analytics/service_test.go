package analytics_test

import (
	"context"
	"testing"
	"time"

	"travyy/internal/analytics"
	"travyy/internal/database/dbtest"
	"travyy/internal/logger"
	"travyy/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

var now = time.Date(2025, 8, 10, 15, 0, 0, 0, time.UTC)

func insert(t *testing.T, db *bun.DB, v interface{}) {
	t.Helper()
	_, err := db.NewInsert().Model(v).Exec(context.Background())
	require.NoError(t, err)
}

func seed(t *testing.T, db *bun.DB) {
	t.Helper()
	insert(t, db, &models.User{ID: "u1", Email: "a@x.vn", Role: models.RoleUser, Status: models.UserActive, AuthProvider: "local", CreatedAt: now, UpdatedAt: now})
	insert(t, db, &models.User{ID: "u2", Email: "b@x.vn", Role: models.RoleUser, Status: models.UserActive, AuthProvider: "local", CreatedAt: now, UpdatedAt: now})
	insert(t, db, &models.User{ID: "admin", Email: "admin@x.vn", Role: models.RoleAdmin, Status: models.UserActive, AuthProvider: "local", CreatedAt: now, UpdatedAt: now})

	booking := func(id string, status models.BookingStatus, total, discount float64, code string, at time.Time) *models.Booking {
		return &models.Booking{ID: id, UserID: "u1", TourID: "t1", TotalAmount: total, DiscountAmount: discount,
			PromotionCode: code, Status: status, CreatedAt: at, UpdatedAt: at}
	}
	insert(t, db, booking("b1", models.BookingConfirmed, 1000000, 100000, "SUMMER10", now.Add(-time.Hour)))
	insert(t, db, booking("b2", models.BookingRefunded, 500000, 0, "", now.Add(-24*time.Hour)))
	insert(t, db, booking("b3", models.BookingPending, 700000, 0, "", now))
	insert(t, db, booking("b4", models.BookingConfirmed, 300000, 0, "", now.AddDate(0, 0, -40)))

	insert(t, db, &models.Refund{ID: "r1", BookingID: "b2", UserID: "u1", Amount: 500000, Status: models.RefundCompleted, CreatedAt: now, UpdatedAt: now})
	insert(t, db, &models.Refund{ID: "r2", BookingID: "b1", UserID: "u1", Amount: 100000, Status: models.RefundPending, CreatedAt: now, UpdatedAt: now})

	limit := 100
	insert(t, db, &models.Promotion{ID: "p1", Code: "SUMMER10", Type: models.PromotionPercentage, Value: 10,
		StartDate: now.AddDate(0, 0, -5), EndDate: now.AddDate(0, 0, 5), UsageLimit: &limit, UsageCount: 7,
		Status: models.PromotionActive, CreatedAt: now, UpdatedAt: now})
	insert(t, db, &models.Promotion{ID: "p2", Code: "OLD", Type: models.PromotionFixed, Value: 50000,
		StartDate: now.AddDate(0, -2, 0), EndDate: now.AddDate(0, -1, 0), UsageCount: 2,
		Status: models.PromotionExpired, CreatedAt: now, UpdatedAt: now})
	insert(t, db, &models.UserPromotion{ID: "up1", UserID: "u1", PromotionID: "p1", Code: "SUMMER10", UsedAt: now})
}

func newService(t *testing.T, rdb *redis.Client) (*analytics.Service, *bun.DB) {
	t.Helper()
	db := dbtest.New(t)
	seed(t, db)
	svc := analytics.NewService(analytics.NewDB(db), rdb, time.Minute, logger.NewDiscardLogger()).
		WithClock(func() time.Time { return now })
	return svc, db
}

func TestOverview(t *testing.T) {
	svc, _ := newService(t, nil)

	o, err := svc.Overview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, o.Users.Total)
	assert.Equal(t, 2, o.Users.By["user"])
	assert.Equal(t, 4, o.Bookings.Total)
	assert.Equal(t, 2, o.Bookings.By["confirmed"])
	assert.Equal(t, 2, o.Refunds.Total)
	assert.Equal(t, 1400000.0+300000.0, o.Revenue.Gross)
	assert.Equal(t, 500000.0, o.Revenue.Refunded)
	assert.Equal(t, 1200000.0, o.Revenue.Net)
	assert.Equal(t, analytics.PromotionSummary{Active: 1, Redemptions: 1}, o.Promotions)
}

func TestRevenue_ZeroFillsDays(t *testing.T) {
	svc, _ := newService(t, nil)

	series, err := svc.Revenue(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, series, 3)

	assert.Equal(t, analytics.DailyRevenue{Date: "2025-08-08", Revenue: 0, Bookings: 0}, series[0])
	assert.Equal(t, analytics.DailyRevenue{Date: "2025-08-09", Revenue: 500000, Bookings: 1}, series[1])
	assert.Equal(t, analytics.DailyRevenue{Date: "2025-08-10", Revenue: 900000, Bookings: 1}, series[2])
}

func TestRevenue_ClampsDays(t *testing.T) {
	svc, _ := newService(t, nil)

	series, err := svc.Revenue(context.Background(), 5000)
	require.NoError(t, err)
	assert.Len(t, series, analytics.MaxRevenueDays)
}

func TestTopPromotions(t *testing.T) {
	svc, _ := newService(t, nil)

	list, err := svc.TopPromotions(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "SUMMER10", list[0].Code)
	assert.Equal(t, 7, list[0].UsageCount)
	require.NotNil(t, list[0].UsageLimit)
	assert.Equal(t, 100, *list[0].UsageLimit)
	assert.Equal(t, 100000.0, list[0].TotalDiscount)
	assert.Nil(t, list[1].UsageLimit)
}

func TestOverview_ServedFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc, db := newService(t, rdb)
	ctx := context.Background()

	first, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists("dashboard:overview"))

	insert(t, db, &models.User{ID: "u3", Email: "c@x.vn", Role: models.RoleGuide, Status: models.UserActive, AuthProvider: "local", CreatedAt: now, UpdatedAt: now})

	cached, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.Users.Total, cached.Users.Total)

	mr.FastForward(2 * time.Minute)
	fresh, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, fresh.Users.Total)
}
