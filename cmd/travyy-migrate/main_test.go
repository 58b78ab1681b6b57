package main

import (
	"context"
	"testing"
	"time"

	"travyy/internal/config"
	"travyy/internal/database/dbtest"
	"travyy/internal/models"
	userdb "travyy/internal/user/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestSeedAdmin_Idempotent(t *testing.T) {
	store := &userdb.DB{Bun: dbtest.New(t)}
	ctx := context.Background()
	seed := &config.AdminSeed{Email: " Admin@Travyy.VN ", Password: "s3cret-pass", FullName: "Root"}

	created, err := seedAdmin(ctx, store, seed, time.Now().UTC())
	require.NoError(t, err)
	assert.True(t, created)

	u, err := store.GetUserByEmail(ctx, "admin@travyy.vn")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret-pass")))

	created, err = seedAdmin(ctx, store, seed, time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, created)
}
