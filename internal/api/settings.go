package api

import (
	"encoding/json"
	"net/http"

	apimw "ib_dashboard/internal/api/middleware"
	"ib_dashboard/internal/models"
)

// HandleGetSettings возвращает настройки текущего пользователя
func (h *Handler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	userID, _ := apimw.GetUserID(r.Context())

	settings, err := h.storage.GetSettings(userID)
	if err != nil {
		h.logger.Error("Failed to get settings", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Internal error")

		return
	}

	h.respondJSON(w, http.StatusOK, settings)
}

// HandleSaveSettings сохраняет настройки текущего пользователя
func (h *Handler) HandleSaveSettings(w http.ResponseWriter, r *http.Request) {
	userID, _ := apimw.GetUserID(r.Context())

	var settings models.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if settings.QualificationThreshold < 1 {
		h.respondError(w, http.StatusBadRequest, "Qualification threshold must be at least 1")
		return
	}

	settings.UserID = userID

	if err := h.storage.SaveSettings(settings); err != nil {
		h.logger.Error("Failed to save settings", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Internal error")

		return
	}

	h.respondJSON(w, http.StatusOK, settings)
}

type TwoFARequest struct {
	Code string `json:"code"`
}

// HandleSetup2FA начинает настройку 2FA через backend
func (h *Handler) HandleSetup2FA(w http.ResponseWriter, r *http.Request) {
	username, _ := apimw.GetUsername(r.Context())

	resp, err := h.backend.Setup2FA(r.Context(), username)
	if err != nil {
		h.logger.Error("Backend 2FA setup failed", "error", err)
		h.respondError(w, http.StatusBadGateway, "2FA service unavailable")

		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// HandleVerify2FA проверяет 2FA код через backend
func (h *Handler) HandleVerify2FA(w http.ResponseWriter, r *http.Request) {
	username, _ := apimw.GetUsername(r.Context())

	var req TwoFARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		h.respondError(w, http.StatusBadRequest, "Code is required")
		return
	}

	resp, err := h.backend.Verify2FA(r.Context(), username, req.Code)
	if err != nil {
		h.logger.Error("Backend 2FA verify failed", "error", err)
		h.respondError(w, http.StatusBadGateway, "2FA service unavailable")

		return
	}

	if !resp.Success {
		h.respondError(w, http.StatusUnauthorized, "Invalid code")
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// HandleCheck2FA сообщает, включен ли 2FA у пользователя
func (h *Handler) HandleCheck2FA(w http.ResponseWriter, r *http.Request) {
	username, _ := apimw.GetUsername(r.Context())

	resp, err := h.backend.Check2FA(r.Context(), username)
	if err != nil {
		h.logger.Error("Backend 2FA check failed", "error", err)
		h.respondError(w, http.StatusBadGateway, "2FA service unavailable")

		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// HandleDisable2FA отключает 2FA через backend
func (h *Handler) HandleDisable2FA(w http.ResponseWriter, r *http.Request) {
	username, _ := apimw.GetUsername(r.Context())

	var req TwoFARequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		h.respondError(w, http.StatusBadRequest, "Code is required")
		return
	}

	resp, err := h.backend.Disable2FA(r.Context(), username, req.Code)
	if err != nil {
		h.logger.Error("Backend 2FA disable failed", "error", err)
		h.respondError(w, http.StatusBadGateway, "2FA service unavailable")

		return
	}

	if !resp.Success {
		h.respondError(w, http.StatusUnauthorized, "Invalid code")
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}
