package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"travyy/internal/models"
	"travyy/internal/user"

	"github.com/lib/pq"
	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) getBy(ctx context.Context, column, value string) (*models.User, error) {
	var u models.User
	err := d.Bun.NewSelect().
		Model(&u).
		Where("? = ?", bun.Ident(column), value).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (d *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return d.getBy(ctx, "id", id)
}

func (d *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return d.getBy(ctx, "email", strings.ToLower(email))
}

func (d *DB) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	return d.getBy(ctx, "phone", phone)
}

func (d *DB) CreateUser(ctx context.Context, u *models.User) error {
	_, err := d.Bun.NewInsert().Model(u).Exec(ctx)
	if err != nil && isUniqueViolation(err) {
		return user.ErrDuplicate
	}
	return err
}

func (d *DB) ListUsers(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	list := make([]models.User, 0)
	q := d.Bun.NewSelect().Model(&list).Order("created_at DESC")

	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		term := "%" + strings.ToLower(filter.Search) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(full_name) LIKE ?", term).
				WhereOr("LOWER(email) LIKE ?", term).
				WhereOr("phone LIKE ?", term)
		})
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

func (d *DB) UserStats(ctx context.Context) (*models.UserStats, error) {
	var rows []struct {
		Role   string `bun:"role"`
		Status string `bun:"status"`
		Count  int    `bun:"count"`
	}
	err := d.Bun.NewSelect().
		Model((*models.User)(nil)).
		Column("role", "status").
		ColumnExpr("COUNT(*) AS count").
		Group("role", "status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	stats := &models.UserStats{ByRole: map[string]int{}, ByStatus: map[string]int{}}
	for _, row := range rows {
		stats.Total += row.Count
		stats.ByRole[row.Role] += row.Count
		stats.ByStatus[row.Status] += row.Count
	}
	return stats, nil
}

func (d *DB) UpdateUserStatus(ctx context.Context, id string, status models.UserStatus) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.User)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
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
