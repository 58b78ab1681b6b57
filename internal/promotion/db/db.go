package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"travyy/internal/models"
	"travyy/internal/promotion"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return promotion.ErrNotFound
	}
	return err
}

func (d *DB) GetPromotionByCode(ctx context.Context, code string) (*models.Promotion, error) {
	var p models.Promotion
	err := d.Bun.NewSelect().
		Model(&p).
		Where("code = ?", code).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (d *DB) GetPromotionByID(ctx context.Context, id string) (*models.Promotion, error) {
	var p models.Promotion
	err := d.Bun.NewSelect().
		Model(&p).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// ListPromotions is the admin listing, newest first.
func (d *DB) ListPromotions(ctx context.Context, filter models.PromotionFilter) ([]models.Promotion, int, error) {
	var list []models.Promotion
	q := d.Bun.NewSelect().Model(&list).Order("created_at DESC")

	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		q = q.Where("UPPER(code) LIKE ?", "%"+strings.ToUpper(filter.Search)+"%")
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

func (d *DB) ListActivePromotions(ctx context.Context, now time.Time, limit int) ([]models.Promotion, error) {
	list := make([]models.Promotion, 0)
	err := d.Bun.NewSelect().
		Model(&list).
		Where("status = ?", models.PromotionActive).
		Where("start_date <= ?", now).
		Where("end_date >= ?", now).
		Order("end_date ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) CreatePromotion(ctx context.Context, p *models.Promotion) error {
	_, err := d.Bun.NewInsert().Model(p).Exec(ctx)
	return err
}

// UpdatePromotion writes the admin-editable columns. usage_count is left alone.
func (d *DB) UpdatePromotion(ctx context.Context, p *models.Promotion) error {
	res, err := d.Bun.NewUpdate().
		Model(p).
		Column("code", "description", "type", "value", "min_order_value", "max_discount",
			"start_date", "end_date", "usage_limit", "status", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (d *DB) DeletePromotion(ctx context.Context, id string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.UserPromotion)(nil)).
			Where("promotion_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().
			Model((*models.Promotion)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		return requireRow(res)
	})
}

func (d *DB) HasUserRedeemed(ctx context.Context, userID, promotionID string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.UserPromotion)(nil)).
		Where("user_id = ?", userID).
		Where("promotion_id = ?", promotionID).
		Exists(ctx)
}

func (d *DB) RedeemedPromotionIDs(ctx context.Context, userID string) ([]string, error) {
	ids := make([]string, 0)
	err := d.Bun.NewSelect().
		Model((*models.UserPromotion)(nil)).
		Column("promotion_id").
		Where("user_id = ?", userID).
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// Redeem runs the guarded increment and the redemption insert in one transaction.
func (d *DB) Redeem(ctx context.Context, usage *models.UserPromotion) (int, error) {
	var count int
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		used, err := tx.NewSelect().
			Model((*models.UserPromotion)(nil)).
			Where("user_id = ?", usage.UserID).
			Where("promotion_id = ?", usage.PromotionID).
			Exists(ctx)
		if err != nil {
			return err
		}
		if used {
			return promotion.ErrAlreadyRedeemed
		}

		res, err := tx.NewUpdate().
			Model((*models.Promotion)(nil)).
			Set("usage_count = usage_count + 1").
			Set("updated_at = ?", usage.UsedAt).
			Where("id = ?", usage.PromotionID).
			Where("status = ?", models.PromotionActive).
			WhereGroup(" AND ", func(q *bun.UpdateQuery) *bun.UpdateQuery {
				return q.Where("usage_limit IS NULL").WhereOr("usage_count < usage_limit")
			}).
			Exec(ctx)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return promotion.ErrLimitReached
		}

		if _, err := tx.NewInsert().Model(usage).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return promotion.ErrAlreadyRedeemed
			}
			return err
		}

		return tx.NewSelect().
			Model((*models.Promotion)(nil)).
			Column("usage_count").
			Where("id = ?", usage.PromotionID).
			Scan(ctx, &count)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (d *DB) ExpireEndedPromotions(ctx context.Context, now time.Time) (int, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Promotion)(nil)).
		Set("status = ?", models.PromotionExpired).
		Set("updated_at = ?", now).
		Where("status = ?", models.PromotionActive).
		Where("end_date < ?", now).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return promotion.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
