package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"travyy/internal/auth"
	"travyy/internal/logger"
	"travyy/internal/models"
	"travyy/internal/user"
	"travyy/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *user.Service
	Logger  *logger.Logger
}

func NewHandler(service *user.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// RegisterRoutes expects r to already require the admin role.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/admin/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Get("/stats", h.Stats)
		r.Get("/guides", h.ListGuides)
		r.Get("/{id}", h.GetUser)
		r.Put("/{id}/status", h.UpdateStatus)
	})
}

func filterFrom(r *http.Request) models.UserFilter {
	q := r.URL.Query()
	page, limit := utils.ParsePaging(q.Get("page"), q.Get("limit"), 20, 100)
	return models.UserFilter{
		Role:   q.Get("role"),
		Status: q.Get("status"),
		Search: q.Get("search"),
		Page:   page,
		Limit:  limit,
	}
}

func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, user.ErrInvalidInput):
		utils.WriteError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, user.ErrNotFound):
		utils.WriteError(w, http.StatusNotFound, message, err)
	default:
		h.Logger.Error("USER", message+": "+err.Error())
		utils.WriteError(w, http.StatusInternalServerError, message, err)
	}
}

func (h *Handler) writePage(w http.ResponseWriter, list []models.User, total int, f models.UserFilter) {
	utils.WriteSuccess(w, http.StatusOK, "OK", map[string]interface{}{
		"users":      list,
		"pagination": utils.NewPageMeta(f.Page, f.Limit, total),
	})
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	f := filterFrom(r)
	list, total, err := h.Service.List(r.Context(), f)
	if err != nil {
		h.fail(w, "Could not list users", err)
		return
	}
	h.writePage(w, list, total, f)
}

func (h *Handler) ListGuides(w http.ResponseWriter, r *http.Request) {
	f := filterFrom(r)
	list, total, err := h.Service.Guides(r.Context(), f)
	if err != nil {
		h.fail(w, "Could not list guides", err)
		return
	}
	h.writePage(w, list, total, f)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context())
	if err != nil {
		h.fail(w, "Could not load user stats", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "OK", stats)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "Could not load user", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "OK", u)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	u, err := h.Service.UpdateStatus(r.Context(), chi.URLParam(r, "id"), body.Status, auth.UserID(r.Context()))
	if err != nil {
		h.fail(w, "Could not update status", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Status updated", u)
}
