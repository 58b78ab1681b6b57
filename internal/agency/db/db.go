package db

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"travyy/internal/agency"
	"travyy/internal/models"

	"github.com/uptrace/bun"
)

type DB struct {
	Bun *bun.DB
}

const employeeCountExpr = "(SELECT COUNT(*) FROM agency_employees AS e WHERE e.agency_id = agency.id) AS employee_count"

func (d *DB) ListAgencies(ctx context.Context, filter models.AgencyFilter) ([]models.Agency, int, error) {
	list := make([]models.Agency, 0)
	q := d.Bun.NewSelect().
		Model(&list).
		ColumnExpr("agency.*").
		ColumnExpr(employeeCountExpr).
		Order("agency.created_at DESC")

	if filter.Status != "" {
		q = q.Where("agency.status = ?", filter.Status)
	}
	if filter.Search != "" {
		term := "%" + strings.ToLower(filter.Search) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("LOWER(agency.name) LIKE ?", term).
				WhereOr("LOWER(agency.email) LIKE ?", term).
				WhereOr("agency.phone LIKE ?", term)
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

func (d *DB) GetAgencyByID(ctx context.Context, id string) (*models.Agency, error) {
	var a models.Agency
	err := d.Bun.NewSelect().
		Model(&a).
		ColumnExpr("agency.*").
		ColumnExpr(employeeCountExpr).
		Where("agency.id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, agency.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (d *DB) CreateAgency(ctx context.Context, a *models.Agency) error {
	_, err := d.Bun.NewInsert().Model(a).Exec(ctx)
	return err
}

func (d *DB) UpdateAgency(ctx context.Context, a *models.Agency) error {
	res, err := d.Bun.NewUpdate().
		Model(a).
		Column("name", "email", "phone", "address", "description", "status", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res, agency.ErrNotFound)
}

func (d *DB) DeleteAgency(ctx context.Context, id string) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.AgencyEmployee)(nil)).
			Where("agency_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
		res, err := tx.NewDelete().
			Model((*models.Agency)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		return requireRow(res, agency.ErrNotFound)
	})
}

func (d *DB) AgencyStats(ctx context.Context) (*models.AgencyStats, error) {
	var rows []struct {
		Status string `bun:"status"`
		Count  int    `bun:"count"`
	}
	err := d.Bun.NewSelect().
		Model((*models.Agency)(nil)).
		Column("status").
		ColumnExpr("COUNT(*) AS count").
		Group("status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}

	stats := &models.AgencyStats{}
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Status {
		case agency.StatusActive:
			stats.Active += row.Count
		case agency.StatusInactive:
			stats.Inactive += row.Count
		}
	}

	stats.Employees, err = d.Bun.NewSelect().Model((*models.AgencyEmployee)(nil)).Count(ctx)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (d *DB) ListEmployees(ctx context.Context, agencyID string) ([]models.AgencyEmployee, error) {
	list := make([]models.AgencyEmployee, 0)
	err := d.Bun.NewSelect().
		Model(&list).
		Where("agency_id = ?", agencyID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (d *DB) GetEmployee(ctx context.Context, agencyID, employeeID string) (*models.AgencyEmployee, error) {
	var e models.AgencyEmployee
	err := d.Bun.NewSelect().
		Model(&e).
		Where("id = ?", employeeID).
		Where("agency_id = ?", agencyID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, agency.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (d *DB) CreateEmployee(ctx context.Context, e *models.AgencyEmployee) error {
	_, err := d.Bun.NewInsert().Model(e).Exec(ctx)
	return err
}

func (d *DB) UpdateEmployee(ctx context.Context, e *models.AgencyEmployee) error {
	res, err := d.Bun.NewUpdate().
		Model(e).
		Column("full_name", "email", "phone", "position", "status").
		WherePK().
		Where("agency_id = ?", e.AgencyID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res, agency.ErrEmployeeNotFound)
}

func (d *DB) DeleteEmployee(ctx context.Context, agencyID, employeeID string) error {
	res, err := d.Bun.NewDelete().
		Model((*models.AgencyEmployee)(nil)).
		Where("id = ?", employeeID).
		Where("agency_id = ?", agencyID).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireRow(res, agency.ErrEmployeeNotFound)
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
