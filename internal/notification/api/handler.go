package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"travyy/internal/auth"
	"travyy/internal/logger"
	"travyy/internal/notification"
	"travyy/internal/sse"
	"travyy/internal/utils"

	"github.com/go-chi/chi/v5"
)

const keepAliveInterval = 25 * time.Second

type Handler struct {
	Service *notification.Service
	Hub     *sse.Hub
	Logger  *logger.Logger
}

func NewHandler(service *notification.Service, hub *sse.Hub, log *logger.Logger) *Handler {
	return &Handler{Service: service, Hub: hub, Logger: log}
}

// RegisterRoutes expects r to already require authentication.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/notifications", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/stream", h.Stream)
		r.Put("/{id}/read", h.MarkRead)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	q := r.URL.Query()
	page, limit := utils.ParsePaging(q.Get("page"), q.Get("limit"), 20, 100)

	list, total, err := h.Service.List(r.Context(), userID, q.Get("unread") == "true", page, limit)
	if err != nil {
		h.Logger.Error("NOTIFICATION", "List failed: "+err.Error())
		utils.WriteError(w, http.StatusInternalServerError, "Could not load notifications", err)
		return
	}
	unread, err := h.Service.UnreadCount(r.Context(), userID)
	if err != nil {
		h.Logger.Error("NOTIFICATION", "Unread count failed: "+err.Error())
		utils.WriteError(w, http.StatusInternalServerError, "Could not load notifications", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "OK", map[string]interface{}{
		"notifications": list,
		"unread":        unread,
		"pagination":    utils.NewPageMeta(page, limit, total),
	})
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	err := h.Service.MarkRead(r.Context(), auth.UserID(r.Context()), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, notification.ErrNotFound):
		utils.WriteError(w, http.StatusNotFound, "Notification not found", err)
	case err != nil:
		h.Logger.Error("NOTIFICATION", "Mark read failed: "+err.Error())
		utils.WriteError(w, http.StatusInternalServerError, "Could not update notification", err)
	default:
		utils.WriteSuccess(w, http.StatusOK, "Marked as read", nil)
	}
}

// Stream pushes new notifications to the caller as Server-Sent Events.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.WriteError(w, http.StatusInternalServerError, "Streaming unsupported", nil)
		return
	}
	userID := auth.UserID(r.Context())
	setupSSEHeaders(w)

	ctx := r.Context()
	events := h.Hub.Subscribe(ctx, userID)

	fmt.Fprint(w, "event: connected\ndata: {\"status\":\"connected\"}\n\n")
	flusher.Flush()
	h.Logger.Debug("SSE", fmt.Sprintf("User %s connected to notification stream", userID))

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case n, ok := <-events:
			if !ok {
				return
			}
			payload, err := json.Marshal(n)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize notification: %v", err))
				continue
			}
			fmt.Fprintf(w, "event: notification\ndata: %s\n\n", payload)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("User %s left notification stream", userID))
			return
		}
	}
}

func setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}
