package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"travyy/internal/auth"
	"travyy/internal/logger"
	"travyy/internal/models"
	"travyy/internal/promotion"
	"travyy/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *promotion.Service
	Authn   *auth.Authenticator
	Logger  *logger.Logger
}

func NewHandler(service *promotion.Service, authn *auth.Authenticator, log *logger.Logger) *Handler {
	return &Handler{Service: service, Authn: authn, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/promotions", func(r chi.Router) {
		r.With(h.Authn.Optional).Get("/active", h.GetActive)

		r.Group(func(r chi.Router) {
			r.Use(h.Authn.Middleware)
			r.Post("/validate", h.Validate)
			r.Post("/apply", h.Apply)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.Authn.Middleware, auth.RequireRole(models.RoleAdmin))
			r.Get("/", h.List)
			r.Post("/", h.Create)
			r.Get("/{id}", h.Get)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
		})
	})
}

type checkoutRequest struct {
	Code        string  `json:"code"`
	TotalAmount float64 `json:"totalAmount"`
	BookingID   string  `json:"bookingId"`
}

func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, promotion.ErrInvalidInput):
		utils.WriteError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, promotion.ErrNotFound):
		utils.WriteError(w, http.StatusNotFound, message, err)
	case errors.Is(err, promotion.ErrDuplicateCode):
		utils.WriteError(w, http.StatusConflict, message, err)
	default:
		h.Logger.Error("PROMOTION", fmt.Sprintf("%s: %v", message, err))
		utils.WriteError(w, http.StatusInternalServerError, message, err)
	}
}

func (h *Handler) decodeCheckout(w http.ResponseWriter, r *http.Request) (checkoutRequest, bool) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return req, false
	}
	if req.Code == "" {
		utils.WriteError(w, http.StatusBadRequest, "Promo code cannot be empty", promotion.ErrInvalidInput)
		return req, false
	}
	if req.TotalAmount < 0 {
		utils.WriteError(w, http.StatusBadRequest, "Total amount must not be negative", promotion.ErrInvalidInput)
		return req, false
	}
	return req, true
}

// Validate answers 200 for both outcomes; rejections carry valid=false and a message.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCheckout(w, r)
	if !ok {
		return
	}
	result, err := h.Service.Validate(r.Context(), req.Code, req.TotalAmount, auth.UserID(r.Context()))
	if err != nil {
		h.fail(w, "Could not validate promotion", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, result.Message, result)
}

func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCheckout(w, r)
	if !ok {
		return
	}
	result, err := h.Service.Apply(r.Context(), req.Code, req.TotalAmount, auth.UserID(r.Context()), req.BookingID)
	if err != nil {
		h.fail(w, "Could not apply promotion", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, result.Message, result)
}

func (h *Handler) GetActive(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.GetActive(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.fail(w, "Could not load promotions", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "OK", list)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit := utils.ParsePaging(q.Get("page"), q.Get("limit"), 20, 100)
	filter := models.PromotionFilter{Status: q.Get("status"), Search: q.Get("search"), Page: page, Limit: limit}

	list, total, err := h.Service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, "Could not list promotions", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "OK", map[string]interface{}{
		"promotions": list,
		"pagination": utils.NewPageMeta(page, limit, total),
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "Could not load promotion", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "OK", p)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.PromotionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p, err := h.Service.Create(r.Context(), in, auth.UserID(r.Context()))
	if err != nil {
		h.fail(w, "Could not create promotion", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Promotion created", p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in models.PromotionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	p, err := h.Service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, "Could not update promotion", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Promotion updated", p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "Could not delete promotion", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Promotion deleted", nil)
}
