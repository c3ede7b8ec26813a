package api

import (
	"net/http"

	apimw "ib_dashboard/internal/api/middleware"
	"ib_dashboard/internal/aggregate"
	"ib_dashboard/internal/models"
)

type NetworkResponse struct {
	Tree          []*models.ReferralNode `json:"tree"`
	NetworkVolume float64                `json:"network_volume"`

	// Метрики сети за выбранный период
	Metrics aggregate.MetricsResult `json:"metrics"`

	// Заполняются при ?rollup=1
	RolledUp *aggregate.RollUpSummary `json:"rolled_up,omitempty"`
}

// HandleGetNetwork возвращает трёхуровневое реферальное дерево партнёра
// и метрики за период. С ?rollup=1 неквалифицированные узлы первого
// уровня сворачиваются в одну суммарную строку.
func (h *Handler) HandleGetNetwork(w http.ResponseWriter, r *http.Request) {
	session, err := h.platform.GetSession()
	if err != nil {
		h.respondError(w, http.StatusServiceUnavailable, "Platform session not connected")
		return
	}

	window, ok := h.parseWindow(r)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid window")
		return
	}

	metrics, committed := h.data.WindowedMetrics(r.Context(), viewNetwork, window)
	if !committed {
		h.respondError(w, http.StatusConflict, "Request superseded")
		return
	}

	userID, _ := apimw.GetUserID(r.Context())

	threshold := aggregate.DefaultQualificationThreshold
	if settings, err := h.storage.GetSettings(userID); err == nil {
		threshold = settings.QualificationThreshold
	}

	tree := aggregate.BuildTree(h.data.Clients(), session.PartnerID, threshold)

	resp := NetworkResponse{
		Tree:          tree,
		NetworkVolume: aggregate.NetworkVolume(tree),
		Metrics:       metrics,
	}

	if r.URL.Query().Get("rollup") == "1" {
		qualified, summary := aggregate.RollUpUnqualified(tree)
		resp.Tree = qualified
		resp.RolledUp = &summary
	}

	h.respondJSON(w, http.StatusOK, resp)
}
