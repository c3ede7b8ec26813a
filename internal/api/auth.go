package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"ib_dashboard/internal/models"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// HandleLogin обрабатывает вход пользователя
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.storage.GetUserByUsername(req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			h.respondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		h.logger.Error("Failed to get user", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Internal error")

		return
	}

	if err := h.authService.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		h.respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.authService.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		h.logger.Error("Failed to generate token", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Internal error")

		return
	}

	h.logger.Info("✅ User logged in", "username", user.Username)

	h.respondJSON(w, http.StatusOK, LoginResponse{
		Token:    token,
		Username: user.Username,
		Role:     user.Role,
	})
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleRegister регистрирует нового партнёра
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)

	if len(req.Username) < 3 {
		h.respondError(w, http.StatusBadRequest, "Username must be at least 3 characters")
		return
	}

	if len(req.Password) < 8 {
		h.respondError(w, http.StatusBadRequest, "Password must be at least 8 characters")
		return
	}

	hash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		h.logger.Error("Failed to hash password", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Internal error")

		return
	}

	user, err := h.storage.CreateUser(req.Username, hash, models.RolePartner)
	if err != nil {
		h.respondError(w, http.StatusConflict, "Username already taken")
		return
	}

	token, err := h.authService.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		h.logger.Error("Failed to generate token", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Internal error")

		return
	}

	h.logger.Info("✅ User registered", "username", user.Username)

	h.respondJSON(w, http.StatusCreated, LoginResponse{
		Token:    token,
		Username: user.Username,
		Role:     user.Role,
	})
}

type OTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code,omitempty"`
}

// HandleSendOTP проксирует отправку одноразового кода в backend
func (h *Handler) HandleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req OTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		h.respondError(w, http.StatusBadRequest, "Email is required")
		return
	}

	resp, err := h.backend.SendOTP(r.Context(), req.Email)
	if err != nil {
		h.logger.Error("Backend OTP send failed", "error", err)
		h.respondError(w, http.StatusBadGateway, "OTP service unavailable")

		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// HandleVerifyOTP проксирует проверку одноразового кода
func (h *Handler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req OTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Code == "" {
		h.respondError(w, http.StatusBadRequest, "Email and code are required")
		return
	}

	resp, err := h.backend.VerifyOTP(r.Context(), req.Email, req.Code)
	if err != nil {
		h.logger.Error("Backend OTP verify failed", "error", err)
		h.respondError(w, http.StatusBadGateway, "OTP service unavailable")

		return
	}

	if !resp.Success {
		h.respondError(w, http.StatusUnauthorized, "Invalid code")
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// HandleResetPassword запускает сброс пароля через backend
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req OTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		h.respondError(w, http.StatusBadRequest, "Email is required")
		return
	}

	resp, err := h.backend.ResetPassword(r.Context(), req.Email)
	if err != nil {
		h.logger.Error("Backend password reset failed", "error", err)
		h.respondError(w, http.StatusBadGateway, "Reset service unavailable")

		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}
