package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	apimw "ib_dashboard/internal/api/middleware"
	"ib_dashboard/internal/models"

	"github.com/gorilla/mux"
)

// HandleGetLogs возвращает журнал действий (admin)
func (h *Handler) HandleGetLogs(w http.ResponseWriter, r *http.Request) {
	userID, _ := apimw.GetUserID(r.Context())

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}

	logs, err := h.storage.GetLogs(userID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to get logs", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Internal error")

		return
	}

	if logs == nil {
		logs = []models.ActivityLog{}
	}

	h.respondJSON(w, http.StatusOK, logs)
}

// HandleGetAllPayouts возвращает заявки всех партнёров (admin)
func (h *Handler) HandleGetAllPayouts(w http.ResponseWriter, r *http.Request) {
	payouts, err := h.storage.GetAllPayoutRequests()
	if err != nil {
		h.logger.Error("Failed to get payouts", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Internal error")

		return
	}

	if payouts == nil {
		payouts = []models.PayoutRequest{}
	}

	h.respondJSON(w, http.StatusOK, payouts)
}

type UpdatePayoutStatusRequest struct {
	Status string `json:"status"`
}

// HandleUpdatePayoutStatus меняет статус заявки на выплату (admin).
// Допустимые переходы: pending -> approved/rejected, approved -> paid.
func (h *Handler) HandleUpdatePayoutStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid payout ID")
		return
	}

	var req UpdatePayoutStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	switch req.Status {
	case models.PayoutApproved, models.PayoutPaid, models.PayoutRejected:
	default:
		h.respondError(w, http.StatusBadRequest, "Invalid status")
		return
	}

	if err := h.storage.UpdatePayoutStatus(id, req.Status); err != nil {
		h.respondError(w, http.StatusNotFound, "Payout request not found")
		return
	}

	adminID, _ := apimw.GetUserID(r.Context())

	h.storage.AddLog(r.Context(), models.ActivityLog{
		UserID:  &adminID,
		Level:   "info",
		Action:  "payout_status_changed",
		Message: "Payout " + strconv.Itoa(id) + " -> " + req.Status,
	})

	h.respondSuccess(w, "Payout status updated", nil)
}
