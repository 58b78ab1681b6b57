package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"travyy/internal/logger"
	"travyy/internal/models"

	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

// Models lists every table in creation order.
func Models() []interface{} {
	return []interface{}{
		(*models.User)(nil),
		(*models.Agency)(nil),
		(*models.AgencyEmployee)(nil),
		(*models.Promotion)(nil),
		(*models.UserPromotion)(nil),
		(*models.Booking)(nil),
		(*models.Refund)(nil),
		(*models.Notification)(nil),
	}
}

// CreateSchema builds tables straight from the models. SQL migrations are the
// source of truth in production; this serves tests and local sqlite runs.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	for _, m := range Models() {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", m, err)
		}
	}
	return nil
}

type PoolOptions struct {
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// Connect opens PostgreSQL with retries and wraps it in bun.
func Connect(ctx context.Context, dsn string, pool PoolOptions, log *logger.Logger) (*bun.DB, error) {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", dsn)
		if err == nil {
			err = sqldb.PingContext(ctx)
			if err == nil {
				break
			}
			sqldb.Close()
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to postgres after %d attempts: %w", maxRetries, err)
	}

	sqldb.SetMaxOpenConns(pool.MaxOpenConns)
	sqldb.SetMaxIdleConns(pool.MaxIdleConns)
	sqldb.SetConnMaxLifetime(pool.MaxLifetime)

	log.Info("DATABASE", "PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New()), nil
}
