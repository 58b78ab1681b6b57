package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"travyy/internal/models"
	"travyy/internal/refund"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

var openStatuses = []models.RefundStatus{
	models.RefundPending,
	models.RefundApproved,
	models.RefundManualRequired,
	models.RefundManualPending,
}

func (d *DB) CreateRefund(ctx context.Context, r *models.Refund) error {
	_, err := d.Bun.NewInsert().Model(r).Exec(ctx)
	return err
}

func (d *DB) GetRefundByID(ctx context.Context, id string) (*models.Refund, error) {
	var r models.Refund
	err := d.Bun.NewSelect().
		Model(&r).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, refund.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (d *DB) ListRefunds(ctx context.Context, filter models.RefundFilter) ([]models.Refund, int, error) {
	list := make([]models.Refund, 0)
	q := d.Bun.NewSelect().Model(&list).Order("created_at DESC")

	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		q = q.Limit(filter.Limit).Offset((page - 1) * filter.Limit)
	}

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (d *DB) HasOpenRefund(ctx context.Context, bookingID string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Refund)(nil)).
		Where("booking_id = ?", bookingID).
		Where("status IN (?)", bun.In(openStatuses)).
		Exists(ctx)
}

// UpdateRefund is a compare-and-set on status so two admins cannot move the
// same refund concurrently.
func (d *DB) UpdateRefund(ctx context.Context, r *models.Refund, from ...models.RefundStatus) error {
	q := d.Bun.NewUpdate().
		Model(r).
		ExcludeColumn("id", "booking_id", "user_id", "created_at").
		WherePK()
	if len(from) > 0 {
		q = q.Where("status IN (?)", bun.In(from))
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := d.GetRefundByID(ctx, r.ID); err != nil {
			return err
		}
		return refund.ErrInvalidTransition
	}
	return nil
}

// ExpirePending moves pending refunds created before createdBefore to expired
// and returns exactly the rows the update changed.
func (d *DB) ExpirePending(ctx context.Context, createdBefore, now time.Time) ([]models.Refund, error) {
	expired := make([]models.Refund, 0)
	_, err := d.Bun.NewUpdate().
		Model((*models.Refund)(nil)).
		Set("status = ?", models.RefundExpired).
		Set("updated_at = ?", now).
		Where("status = ?", models.RefundPending).
		Where("created_at < ?", createdBefore).
		Returning("*").
		Exec(ctx, &expired)
	if err != nil {
		return nil, err
	}
	return expired, nil
}
