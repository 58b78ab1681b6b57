package db_test

import (
	"context"
	"testing"
	"time"

	"travyy/internal/database/dbtest"
	"travyy/internal/models"
	"travyy/internal/refund"
	"travyy/internal/refund/db"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRefund(t *testing.T, store *db.DB, bookingID string, status models.RefundStatus, createdAt time.Time) *models.Refund {
	t.Helper()
	r := &models.Refund{
		ID:        uuid.NewString(),
		BookingID: bookingID,
		UserID:    "user-1",
		Amount:    250000,
		Status:    status,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	require.NoError(t, store.CreateRefund(context.Background(), r))
	return r
}

func TestGetRefundByID_NotFound(t *testing.T) {
	store := &db.DB{Bun: dbtest.New(t)}
	_, err := store.GetRefundByID(context.Background(), "nope")
	assert.ErrorIs(t, err, refund.ErrNotFound)
}

func TestHasOpenRefund(t *testing.T) {
	store := &db.DB{Bun: dbtest.New(t)}
	ctx := context.Background()
	now := time.Now().UTC()

	seedRefund(t, store, "bk-closed", models.RefundRejected, now)
	seedRefund(t, store, "bk-open", models.RefundManualPending, now)

	open, err := store.HasOpenRefund(ctx, "bk-closed")
	require.NoError(t, err)
	assert.False(t, open)

	open, err = store.HasOpenRefund(ctx, "bk-open")
	require.NoError(t, err)
	assert.True(t, open)
}

func TestUpdateRefund_CompareAndSet(t *testing.T) {
	store := &db.DB{Bun: dbtest.New(t)}
	ctx := context.Background()
	r := seedRefund(t, store, "bk-1", models.RefundPending, time.Now().UTC())

	first := *r
	first.Status = models.RefundApproved
	first.ReviewedBy = "admin-a"
	require.NoError(t, store.UpdateRefund(ctx, &first, models.RefundPending))

	second := *r
	second.Status = models.RefundRejected
	second.ReviewedBy = "admin-b"
	assert.ErrorIs(t, store.UpdateRefund(ctx, &second, models.RefundPending), refund.ErrInvalidTransition)

	got, err := store.GetRefundByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RefundApproved, got.Status)
	assert.Equal(t, "admin-a", got.ReviewedBy)

	ghost := *r
	ghost.ID = "missing"
	assert.ErrorIs(t, store.UpdateRefund(ctx, &ghost, models.RefundPending), refund.ErrNotFound)
}

func TestExpirePending(t *testing.T) {
	store := &db.DB{Bun: dbtest.New(t)}
	ctx := context.Background()
	now := time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC)

	stale := seedRefund(t, store, "bk-1", models.RefundPending, now.Add(-96*time.Hour))
	fresh := seedRefund(t, store, "bk-2", models.RefundPending, now.Add(-time.Hour))
	approved := seedRefund(t, store, "bk-3", models.RefundApproved, now.Add(-96*time.Hour))

	expired, err := store.ExpirePending(ctx, now.Add(-72*time.Hour), now)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, stale.ID, expired[0].ID)
	assert.Equal(t, models.RefundExpired, expired[0].Status)
	assert.True(t, expired[0].UpdatedAt.Equal(now))

	for id, want := range map[string]models.RefundStatus{
		stale.ID:    models.RefundExpired,
		fresh.ID:    models.RefundPending,
		approved.ID: models.RefundApproved,
	} {
		got, err := store.GetRefundByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status)
	}
}

func TestExpirePending_ReturnsOnlyRowsItChanged(t *testing.T) {
	store := &db.DB{Bun: dbtest.New(t)}
	ctx := context.Background()
	now := time.Date(2025, 8, 10, 12, 0, 0, 0, time.UTC)

	reviewed := seedRefund(t, store, "bk-1", models.RefundPending, now.Add(-96*time.Hour))
	reviewed.Status = models.RefundApproved
	require.NoError(t, store.UpdateRefund(ctx, reviewed, models.RefundPending))

	expired, err := store.ExpirePending(ctx, now.Add(-72*time.Hour), now)
	require.NoError(t, err)
	assert.Empty(t, expired)

	again, err := store.ExpirePending(ctx, now.Add(-72*time.Hour), now)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestListRefunds_Filters(t *testing.T) {
	store := &db.DB{Bun: dbtest.New(t)}
	ctx := context.Background()
	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		seedRefund(t, store, "bk-p", models.RefundPending, now.Add(time.Duration(i)*time.Minute))
	}
	seedRefund(t, store, "bk-c", models.RefundCompleted, now)

	list, total, err := store.ListRefunds(ctx, models.RefundFilter{Status: "pending", Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, list, 1)

	list, total, err = store.ListRefunds(ctx, models.RefundFilter{UserID: "someone-else"})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}
