package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"travyy/internal/auth"
	"travyy/internal/logger"
	"travyy/internal/models"
	"travyy/internal/refund"
	"travyy/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *refund.Service
	Logger  *logger.Logger
}

func NewHandler(service *refund.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// RegisterUserRoutes expects r to already require authentication.
func (h *Handler) RegisterUserRoutes(r chi.Router) {
	r.Post("/api/refunds", h.CreateRefund)
	r.Get("/api/refunds/mine", h.ListMine)
}

// RegisterAdminRoutes expects r to already require the admin role.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Route("/api/admin/refunds", func(r chi.Router) {
		r.Get("/", h.ListRefunds)
		r.Get("/{refundId}", h.GetRefund)
		r.Post("/{refundId}/review", h.Review)
		r.Post("/{refundId}/process", h.Process)
		r.Post("/{refundId}/create-manual-payment", h.CreateManualPayment)
		r.Post("/{refundId}/check-payment", h.CheckPayment)
	})
}

func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, refund.ErrInvalidInput):
		utils.WriteError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, refund.ErrForbidden):
		utils.WriteError(w, http.StatusForbidden, message, err)
	case errors.Is(err, refund.ErrNotFound):
		utils.WriteError(w, http.StatusNotFound, message, err)
	case errors.Is(err, refund.ErrConflict), errors.Is(err, refund.ErrInvalidTransition),
		errors.Is(err, refund.ErrInProgress):
		utils.WriteError(w, http.StatusConflict, message, err)
	default:
		h.Logger.Error("REFUND", fmt.Sprintf("%s: %v", message, err))
		utils.WriteError(w, http.StatusInternalServerError, message, err)
	}
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func (h *Handler) writePage(w http.ResponseWriter, r *http.Request, filter models.RefundFilter) {
	list, total, err := h.Service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, "Could not list refunds", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "OK", map[string]interface{}{
		"refunds":    list,
		"pagination": utils.NewPageMeta(filter.Page, filter.Limit, total),
	})
}

func pagingFilter(r *http.Request) models.RefundFilter {
	q := r.URL.Query()
	page, limit := utils.ParsePaging(q.Get("page"), q.Get("limit"), 20, 100)
	return models.RefundFilter{Status: q.Get("status"), Page: page, Limit: limit}
}

func (h *Handler) CreateRefund(w http.ResponseWriter, r *http.Request) {
	var req models.RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	created, err := h.Service.Create(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		h.fail(w, "Could not request refund", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Refund requested", created)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	filter := pagingFilter(r)
	filter.UserID = auth.UserID(r.Context())
	h.writePage(w, r, filter)
}

func (h *Handler) ListRefunds(w http.ResponseWriter, r *http.Request) {
	filter := pagingFilter(r)
	filter.UserID = r.URL.Query().Get("userId")
	h.writePage(w, r, filter)
}

func (h *Handler) GetRefund(w http.ResponseWriter, r *http.Request) {
	found, err := h.Service.Get(r.Context(), chi.URLParam(r, "refundId"))
	if err != nil {
		h.fail(w, "Could not load refund", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "OK", found)
}

func (h *Handler) Review(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Approve *bool  `json:"approve"`
		Action  string `json:"action"`
		Note    string `json:"note"`
	}
	if !decode(w, r, &body) {
		return
	}
	var approve bool
	switch {
	case body.Approve != nil:
		approve = *body.Approve
	case body.Action == "approve":
		approve = true
	case body.Action == "reject":
		approve = false
	default:
		utils.WriteError(w, http.StatusBadRequest, "Specify approve or reject", refund.ErrInvalidInput)
		return
	}

	updated, err := h.Service.Review(r.Context(), chi.URLParam(r, "refundId"), approve, body.Note, auth.UserID(r.Context()))
	if err != nil {
		h.fail(w, "Could not review refund", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Refund "+string(updated.Status), updated)
}

// Process answers 200 even when the gateway failed; the outcome carries
// requiresManualProcessing for the dashboard.
func (h *Handler) Process(w http.ResponseWriter, r *http.Request) {
	updated, outcome, err := h.Service.Process(r.Context(), chi.URLParam(r, "refundId"), auth.UserID(r.Context()))
	if err != nil {
		h.fail(w, "Could not process refund", err)
		return
	}
	message := "Refund completed"
	if outcome.RequiresManualProcessing {
		message = "Refund requires manual processing"
	}
	utils.WriteSuccess(w, http.StatusOK, message, map[string]interface{}{
		"refund":  updated,
		"outcome": outcome,
	})
}

func (h *Handler) CreateManualPayment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Method    string `json:"method"`
		Reference string `json:"reference"`
	}
	if !decode(w, r, &body) {
		return
	}
	updated, err := h.Service.CreateManualPayment(r.Context(), chi.URLParam(r, "refundId"), body.Method, body.Reference, auth.UserID(r.Context()))
	if err != nil {
		h.fail(w, "Could not create manual payment", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Manual payment created", updated)
}

func (h *Handler) CheckPayment(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Confirmed     bool   `json:"confirmed"`
		TransactionID string `json:"transactionId"`
	}
	if !decode(w, r, &body) {
		return
	}
	updated, err := h.Service.CheckPayment(r.Context(), chi.URLParam(r, "refundId"), body.Confirmed, body.TransactionID, auth.UserID(r.Context()))
	if err != nil {
		h.fail(w, "Could not check payment", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Refund "+string(updated.Status), map[string]interface{}{
		"refund": updated,
		"paid":   updated.Status == models.RefundCompleted,
	})
}
