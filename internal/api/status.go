package api

import (
	"net/http"

	"ib_dashboard/internal/platform"
)

type StatusResponse struct {
	Status    platform.Status `json:"status"`
	SessionID string          `json:"session_id,omitempty"`
	Username  string          `json:"username,omitempty"`
	PartnerID int64           `json:"partner_id,omitempty"`
}

// HandleStatus возвращает состояние сессии торговой платформы
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Status: h.platform.Status()}

	if session, err := h.platform.GetSession(); err == nil {
		resp.SessionID = session.ID
		resp.Username = session.Username
		resp.PartnerID = session.PartnerID
	}

	h.respondJSON(w, http.StatusOK, resp)
}
