package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"travyy/internal/auth"
	"travyy/internal/logger"
	"travyy/internal/user"
	"travyy/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service  *auth.Service
	Sessions *auth.AdminSessions
	Authn    *auth.Authenticator
	Logger   *logger.Logger
}

func NewHandler(service *auth.Service, sessions *auth.AdminSessions, authn *auth.Authenticator, log *logger.Logger) *Handler {
	return &Handler{Service: service, Sessions: sessions, Authn: authn, Logger: log}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
		r.Post("/logout", h.Logout)
		r.Post("/google", h.GoogleLogin)
		r.Post("/phone-otp/send", h.SendPhoneOTP)
		r.Post("/phone-otp/verify", h.VerifyPhoneOTP)
		r.With(h.Authn.Middleware).Get("/me", h.Me)
	})
	r.Post("/api/admin/login", h.AdminLogin)
	r.Post("/api/admin/logout", h.AdminLogout)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenRequest struct {
	RefreshToken string `json:"refreshToken"`
	IDToken      string `json:"idToken"`
}

type otpRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrOTPInvalid):
		status = http.StatusUnauthorized
	case errors.Is(err, auth.ErrAccountDisabled), errors.Is(err, auth.ErrNotAdmin):
		status = http.StatusForbidden
	case errors.Is(err, user.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, auth.ErrEmailTaken):
		status = http.StatusConflict
	case errors.Is(err, auth.ErrOTPCooldown), errors.Is(err, auth.ErrOTPAttempts):
		status = http.StatusTooManyRequests
	case errors.Is(err, auth.ErrGoogleDisabled):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		h.Logger.Error("AUTH", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
	}
	utils.WriteError(w, status, message, err)
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if !decode(w, r, &in) {
		return
	}
	sess, err := h.Service.Register(r.Context(), in)
	if err != nil {
		h.fail(w, r, "Registration failed", err)
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, "Registered successfully", sess)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if !decode(w, r, &in) {
		return
	}
	sess, err := h.Service.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		h.fail(w, r, "Login failed", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Logged in", sess)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var in tokenRequest
	if !decode(w, r, &in) {
		return
	}
	sess, err := h.Service.Refresh(r.Context(), in.RefreshToken)
	if err != nil {
		h.fail(w, r, "Token refresh failed", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Token refreshed", sess)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var in tokenRequest
	if !decode(w, r, &in) {
		return
	}
	if err := h.Service.Logout(r.Context(), in.RefreshToken); err != nil {
		h.fail(w, r, "Logout failed", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Logged out", nil)
}

func (h *Handler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	var in tokenRequest
	if !decode(w, r, &in) {
		return
	}
	sess, err := h.Service.GoogleLogin(r.Context(), in.IDToken)
	if err != nil {
		h.fail(w, r, "Google login failed", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Logged in", sess)
}

func (h *Handler) SendPhoneOTP(w http.ResponseWriter, r *http.Request) {
	var in otpRequest
	if !decode(w, r, &in) {
		return
	}
	expiresAt, err := h.Service.SendPhoneOTP(r.Context(), in.Phone)
	if err != nil {
		h.fail(w, r, "Could not send OTP", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "OTP sent", map[string]interface{}{
		"expiresAt": expiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *Handler) VerifyPhoneOTP(w http.ResponseWriter, r *http.Request) {
	var in otpRequest
	if !decode(w, r, &in) {
		return
	}
	sess, err := h.Service.VerifyPhoneOTP(r.Context(), in.Phone, in.Code)
	if err != nil {
		h.fail(w, r, "OTP verification failed", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Logged in", sess)
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.Service.Me(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		h.fail(w, r, "Could not load profile", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Profile", u)
}

func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if !decode(w, r, &in) {
		return
	}
	u, err := h.Service.AdminLogin(r.Context(), in.Email, in.Password)
	if err != nil {
		h.fail(w, r, "Admin login failed", err)
		return
	}
	if err := h.Sessions.Start(w, r, u); err != nil {
		h.fail(w, r, "Could not start session", err)
		return
	}
	h.Logger.LogSecurity("ADMIN_LOGIN", fmt.Sprintf("user=%s", u.ID))
	utils.WriteSuccess(w, http.StatusOK, "Logged in", u)
}

func (h *Handler) AdminLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.End(w, r); err != nil {
		h.fail(w, r, "Could not end session", err)
		return
	}
	utils.WriteSuccess(w, http.StatusOK, "Logged out", nil)
}
