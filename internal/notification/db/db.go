package db

import (
	"context"

	"travyy/internal/models"
	"travyy/internal/notification"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateNotification(ctx context.Context, n *models.Notification) error {
	_, err := d.Bun.NewInsert().Model(n).Exec(ctx)
	return err
}

func (d *DB) ListNotifications(ctx context.Context, userID string, unreadOnly bool, page, limit int) ([]models.Notification, int, error) {
	list := make([]models.Notification, 0)
	q := d.Bun.NewSelect().
		Model(&list).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if unreadOnly {
		q = q.Where("read = ?", false)
	}
	if limit > 0 {
		if page < 1 {
			page = 1
		}
		q = q.Limit(limit).Offset((page - 1) * limit)
	}

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (d *DB) CountUnread(ctx context.Context, userID string) (int, error) {
	return d.Bun.NewSelect().
		Model((*models.Notification)(nil)).
		Where("user_id = ?", userID).
		Where("read = ?", false).
		Count(ctx)
}

func (d *DB) MarkRead(ctx context.Context, userID, id string) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Notification)(nil)).
		Set("read = ?", true).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notification.ErrNotFound
	}
	return nil
}
