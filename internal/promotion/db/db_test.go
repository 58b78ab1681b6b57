package db_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"travyy/internal/database/dbtest"
	"travyy/internal/models"
	"travyy/internal/promotion"
	"travyy/internal/promotion/db"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPromotion(t *testing.T, store *db.DB, code string, limit *int, mutate func(p *models.Promotion)) *models.Promotion {
	t.Helper()
	now := time.Now().UTC()
	p := &models.Promotion{
		ID:         uuid.NewString(),
		Code:       code,
		Type:       models.PromotionPercentage,
		Value:      10,
		StartDate:  now.Add(-48 * time.Hour),
		EndDate:    now.Add(48 * time.Hour),
		UsageLimit: limit,
		Status:     models.PromotionActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if mutate != nil {
		mutate(p)
	}
	require.NoError(t, store.CreatePromotion(context.Background(), p))
	return p
}

func usage(p *models.Promotion, userID string) *models.UserPromotion {
	return &models.UserPromotion{
		ID:          uuid.NewString(),
		UserID:      userID,
		PromotionID: p.ID,
		Code:        p.Code,
		UsedAt:      time.Now().UTC(),
	}
}

func TestGetPromotionByCode(t *testing.T) {
	store := &db.DB{Bun: dbtest.New(t)}
	ctx := context.Background()
	seeded := seedPromotion(t, store, "SUMMER10", nil, nil)

	got, err := store.GetPromotionByCode(ctx, "SUMMER10")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, got.ID)

	_, err = store.GetPromotionByCode(ctx, "NOPE")
	assert.ErrorIs(t, err, promotion.ErrNotFound)
}

func TestRedeem_StopsExactlyAtLimit(t *testing.T) {
	store := &db.DB{Bun: dbtest.New(t)}
	ctx := context.Background()
	limit := 3
	p := seedPromotion(t, store, "LIMITED", &limit, nil)

	for i := 1; i <= limit; i++ {
		count, err := store.Redeem(ctx, usage(p, fmt.Sprintf("user-%d", i)))
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}

	_, err := store.Redeem(ctx, usage(p, "user-late"))
	assert.ErrorIs(t, err, promotion.ErrLimitReached)

	got, err := store.GetPromotionByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, limit, got.UsageCount)

	used, err := store.HasUserRedeemed(ctx, "user-late", p.ID)
	require.NoError(t, err)
	assert.False(t, used)
}

func TestRedeem_OncePerUser(t *testing.T) {
	store := &db.DB{Bun: dbtest.New(t)}
	ctx := context.Background()
	p := seedPromotion(t, store, "ONCE", nil, nil)

	_, err := store.Redeem(ctx, usage(p, "u1"))
	require.NoError(t, err)

	_, err = store.Redeem(ctx, usage(p, "u1"))
	assert.ErrorIs(t, err, promotion.ErrAlreadyRedeemed)

	got, err := store.GetPromotionByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsageCount)
}

func TestRedeem_InactivePromotion(t *testing.T) {
	store := &db.DB{Bun: dbtest.New(t)}
	p := seedPromotion(t, store, "OFF", nil, func(p *models.Promotion) { p.Status = models.PromotionInactive })

	_, err := store.Redeem(context.Background(), usage(p, "u1"))
	assert.ErrorIs(t, err, promotion.ErrLimitReached)
}

func TestListActivePromotions(t *testing.T) {
	store := &db.DB{Bun: dbtest.New(t)}
	ctx := context.Background()
	now := time.Now().UTC()

	seedPromotion(t, store, "LIVE", nil, nil)
	seedPromotion(t, store, "PAUSED", nil, func(p *models.Promotion) { p.Status = models.PromotionInactive })
	seedPromotion(t, store, "FUTURE", nil, func(p *models.Promotion) { p.StartDate = now.Add(24 * time.Hour) })
	seedPromotion(t, store, "PAST", nil, func(p *models.Promotion) { p.EndDate = now.Add(-24 * time.Hour) })

	list, err := store.ListActivePromotions(ctx, now, 20)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "LIVE", list[0].Code)
}

func TestRedeemedPromotionIDs(t *testing.T) {
	store := &db.DB{Bun: dbtest.New(t)}
	ctx := context.Background()
	a := seedPromotion(t, store, "A", nil, nil)
	seedPromotion(t, store, "B", nil, nil)

	_, err := store.Redeem(ctx, usage(a, "u1"))
	require.NoError(t, err)

	ids, err := store.RedeemedPromotionIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, ids)
}

func TestExpireEndedPromotions(t *testing.T) {
	store := &db.DB{Bun: dbtest.New(t)}
	ctx := context.Background()
	now := time.Now().UTC()

	ended := seedPromotion(t, store, "ENDED", nil, func(p *models.Promotion) { p.EndDate = now.Add(-time.Hour) })
	live := seedPromotion(t, store, "LIVE", nil, nil)

	n, err := store.ExpireEndedPromotions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := store.GetPromotionByID(ctx, ended.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PromotionExpired, got.Status)

	got, err = store.GetPromotionByID(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PromotionActive, got.Status)
}

func TestListPromotions_FilterAndPaging(t *testing.T) {
	store := &db.DB{Bun: dbtest.New(t)}
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		seedPromotion(t, store, fmt.Sprintf("SALE%d", i), nil, nil)
	}
	seedPromotion(t, store, "OTHER", nil, func(p *models.Promotion) { p.Status = models.PromotionInactive })

	list, total, err := store.ListPromotions(ctx, models.PromotionFilter{Search: "sale", Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, list, 2)

	list, total, err = store.ListPromotions(ctx, models.PromotionFilter{Status: "inactive"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "OTHER", list[0].Code)
}

func TestDeletePromotion(t *testing.T) {
	store := &db.DB{Bun: dbtest.New(t)}
	ctx := context.Background()
	p := seedPromotion(t, store, "GONE", nil, nil)

	require.NoError(t, store.DeletePromotion(ctx, p.ID))
	assert.ErrorIs(t, store.DeletePromotion(ctx, p.ID), promotion.ErrNotFound)
}
