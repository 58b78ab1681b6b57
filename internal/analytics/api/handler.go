package api

import (
	"net/http"
	"strconv"

	"travyy/internal/analytics"
	"travyy/internal/logger"
	"travyy/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

func NewHandler(service *analytics.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// RegisterRoutes expects r to already require the admin role.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/admin/dashboard", func(r chi.Router) {
		r.Get("/overview", h.Overview)
		r.Get("/revenue", h.Revenue)
		r.Get("/top-promotions", h.TopPromotions)
	})
}

func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	h.Logger.Error("ANALYTICS", message+": "+err.Error())
	utils.WriteError(w, http.StatusInternalServerError, message, err)
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.Service.Overview(r.Context())
	if err != nil {
		h.fail(w, "Could not load dashboard", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "OK", overview)
}

func (h *Handler) Revenue(w http.ResponseWriter, r *http.Request) {
	days := analytics.DefaultRevenueDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.WriteError(w, http.StatusBadRequest, "days must be a positive integer", err)
			return
		}
		days = n
	}
	series, err := h.Service.Revenue(r.Context(), days)
	if err != nil {
		h.fail(w, "Could not load revenue", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "OK", series)
}

func (h *Handler) TopPromotions(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.Service.TopPromotions(r.Context(), limit)
	if err != nil {
		h.fail(w, "Could not load promotions", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "OK", list)
}
