package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"travyy/internal/agency"
	"travyy/internal/logger"
	"travyy/internal/models"
	"travyy/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *agency.Service
	Logger  *logger.Logger
}

func NewHandler(service *agency.Service, log *logger.Logger) *Handler {
	return &Handler{Service: service, Logger: log}
}

// RegisterRoutes expects r to already require the admin role.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/admin/agencies", func(r chi.Router) {
		r.Get("/", h.List)
		r.Get("/stats", h.Stats)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)

		r.Get("/{id}/employees", h.ListEmployees)
		r.Post("/{id}/employees", h.CreateEmployee)
		r.Put("/{id}/employees/{employeeId}", h.UpdateEmployee)
		r.Delete("/{id}/employees/{employeeId}", h.DeleteEmployee)
	})
}

func (h *Handler) fail(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, agency.ErrInvalidInput):
		utils.WriteError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, agency.ErrNotFound), errors.Is(err, agency.ErrEmployeeNotFound):
		utils.WriteError(w, http.StatusNotFound, message, err)
	default:
		h.Logger.Error("AGENCY", message+": "+err.Error())
		utils.WriteError(w, http.StatusInternalServerError, message, err)
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit := utils.ParsePaging(q.Get("page"), q.Get("limit"), 20, 100)
	f := models.AgencyFilter{Status: q.Get("status"), Search: q.Get("search"), Page: page, Limit: limit}

	list, total, err := h.Service.List(r.Context(), f)
	if err != nil {
		h.fail(w, "Could not list agencies", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "OK", map[string]interface{}{
		"agencies":   list,
		"pagination": utils.NewPageMeta(page, limit, total),
	})
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.Stats(r.Context())
	if err != nil {
		h.fail(w, "Could not load agency stats", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "OK", stats)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	a, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "Could not load agency", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "OK", a)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in models.AgencyInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	a, err := h.Service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "Could not create agency", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Agency created", a)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var in models.AgencyInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	a, err := h.Service.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, "Could not update agency", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Agency updated", a)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "Could not delete agency", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Agency deleted", nil)
}

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.Employees(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "Could not list employees", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "OK", list)
}

func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var in models.EmployeeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	e, err := h.Service.AddEmployee(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, "Could not add employee", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Employee added", e)
}

func (h *Handler) UpdateEmployee(w http.ResponseWriter, r *http.Request) {
	var in models.EmployeeInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	e, err := h.Service.UpdateEmployee(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "employeeId"), in)
	if err != nil {
		h.fail(w, "Could not update employee", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Employee updated", e)
}

func (h *Handler) DeleteEmployee(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.RemoveEmployee(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "employeeId")); err != nil {
		h.fail(w, "Could not remove employee", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Employee removed", nil)
}
