package analytics

import (
	"context"
	"time"

	"travyy/internal/models"

	"github.com/uptrace/bun"
)

// DB runs the dashboard aggregation queries.
type DB struct {
	bun *bun.DB
}

func NewDB(db *bun.DB) *DB {
	return &DB{bun: db}
}

type statusCount struct {
	Status string `bun:"status"`
	Count  int    `bun:"count"`
}

func (db *DB) countByStatus(ctx context.Context, model interface{}) (map[string]int, int, error) {
	var rows []statusCount
	err := db.bun.NewSelect().
		Model(model).
		Column("status").
		ColumnExpr("COUNT(*) AS count").
		Group("status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, 0, err
	}
	out := make(map[string]int, len(rows))
	total := 0
	for _, r := range rows {
		out[r.Status] = r.Count
		total += r.Count
	}
	return out, total, nil
}

func (db *DB) UserCounts(ctx context.Context) (map[string]int, int, error) {
	var rows []struct {
		Role  string `bun:"role"`
		Count int    `bun:"count"`
	}
	err := db.bun.NewSelect().
		Model((*models.User)(nil)).
		Column("role").
		ColumnExpr("COUNT(*) AS count").
		Group("role").
		Scan(ctx, &rows)
	if err != nil {
		return nil, 0, err
	}
	out := make(map[string]int, len(rows))
	total := 0
	for _, r := range rows {
		out[r.Role] = r.Count
		total += r.Count
	}
	return out, total, nil
}

func (db *DB) BookingCounts(ctx context.Context) (map[string]int, int, error) {
	return db.countByStatus(ctx, (*models.Booking)(nil))
}

func (db *DB) RefundCounts(ctx context.Context) (map[string]int, int, error) {
	return db.countByStatus(ctx, (*models.Refund)(nil))
}

// GrossRevenue sums what customers paid on bookings that were ever confirmed.
func (db *DB) GrossRevenue(ctx context.Context) (float64, error) {
	var sum float64
	err := db.bun.NewRaw(`
		SELECT COALESCE(SUM(total_amount - discount_amount), 0)
		FROM bookings
		WHERE status IN (?)`,
		bun.In([]models.BookingStatus{models.BookingConfirmed, models.BookingRefunded}),
	).Scan(ctx, &sum)
	return sum, err
}

func (db *DB) RefundedAmount(ctx context.Context) (float64, error) {
	var sum float64
	err := db.bun.NewRaw(`
		SELECT COALESCE(SUM(amount), 0)
		FROM refunds
		WHERE status = ?`,
		models.RefundCompleted,
	).Scan(ctx, &sum)
	return sum, err
}

func (db *DB) PromotionCounts(ctx context.Context, now time.Time) (active, redemptions int, err error) {
	active, err = db.bun.NewSelect().
		Model((*models.Promotion)(nil)).
		Where("status = ?", models.PromotionActive).
		Where("start_date <= ?", now).
		Where("end_date >= ?", now).
		Count(ctx)
	if err != nil {
		return 0, 0, err
	}
	redemptions, err = db.bun.NewSelect().Model((*models.UserPromotion)(nil)).Count(ctx)
	return active, redemptions, err
}

// PaidBookingRow is one booking in a revenue window.
type PaidBookingRow struct {
	CreatedAt  time.Time `bun:"created_at"`
	AmountPaid float64   `bun:"amount_paid"`
}

func (db *DB) PaidBookingsSince(ctx context.Context, since time.Time) ([]PaidBookingRow, error) {
	rows := make([]PaidBookingRow, 0)
	err := db.bun.NewSelect().
		Model((*models.Booking)(nil)).
		Column("created_at").
		ColumnExpr("total_amount - discount_amount AS amount_paid").
		Where("status IN (?)", bun.In([]models.BookingStatus{models.BookingConfirmed, models.BookingRefunded})).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Scan(ctx, &rows)
	return rows, err
}

func (db *DB) TopPromotions(ctx context.Context, limit int) ([]PromotionUsage, error) {
	rows := make([]PromotionUsage, 0)
	err := db.bun.NewRaw(`
		SELECT
			p.id,
			p.code,
			p.status,
			p.usage_count,
			p.usage_limit,
			COALESCE(SUM(b.discount_amount), 0) AS total_discount
		FROM promotions p
		LEFT JOIN bookings b ON b.promotion_code = p.code
		GROUP BY p.id, p.code, p.status, p.usage_count, p.usage_limit
		ORDER BY p.usage_count DESC, p.code ASC
		LIMIT ?`,
		limit,
	).Scan(ctx, &rows)
	return rows, err
}
