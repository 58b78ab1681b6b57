package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"travyy/internal/auth"
	"travyy/internal/database/dbtest"
	"travyy/internal/logger"
	"travyy/internal/models"
	"travyy/internal/notification"
	"travyy/internal/notification/api"
	"travyy/internal/notification/db"
	"travyy/internal/sse"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asUser(userID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := auth.WithIdentity(r.Context(), auth.Identity{UserID: userID, Role: models.RoleUser, Source: auth.SourceToken})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func TestListAndMarkRead(t *testing.T) {
	log := logger.NewDiscardLogger()
	hub := sse.NewHub()
	svc := notification.NewService(&db.DB{Bun: dbtest.New(t)}, hub, log)
	n, err := svc.Deliver(context.Background(), models.NotificationEvent{UserID: "user-1", Type: "refund", Title: "Hoàn tiền"})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(asUser("user-1"))
	api.NewHandler(svc, hub, log).RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/notifications", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Notifications []models.Notification `json:"notifications"`
			Unread        int                   `json:"unread"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Len(t, body.Data.Notifications, 1)
	assert.Equal(t, 1, body.Data.Unread)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/notifications/"+n.ID+"/read", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/notifications/unknown/read", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
