package api

import (
	"errors"
	"net/http"

	"travyy/internal/auth"
	"travyy/internal/booking"
	"travyy/internal/logger"
	"travyy/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *booking.Service
	Logger  *logger.Logger
}

func NewHandler(service *booking.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// RegisterRoutes expects r to already require authentication.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/bookings/{id}", h.GetBooking)
	r.Get("/api/bookings/{id}/qr", h.GetVoucherQR)
}

func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, booking.ErrNotFound):
		utils.WriteError(w, http.StatusNotFound, message, err)
	case errors.Is(err, booking.ErrForbidden):
		utils.WriteError(w, http.StatusForbidden, message, err)
	default:
		h.Logger.Error("BOOKING", message+": "+err.Error())
		utils.WriteError(w, http.StatusInternalServerError, message, err)
	}
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())
	b, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"), id.UserID, id.Role)
	if err != nil {
		h.fail(w, "Could not load booking", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "OK", b)
}

func (h *Handler) GetVoucherQR(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())
	png, err := h.Service.VoucherPNG(r.Context(), chi.URLParam(r, "id"), id.UserID, id.Role)
	if err != nil {
		h.fail(w, "Could not generate voucher", err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
