package api

import (
	"net/http"
	"time"

	"ib_dashboard/internal/aggregate"
)

type ReportResponse struct {
	Window  aggregate.Window        `json:"window"`
	Metrics aggregate.MetricsResult `json:"metrics"`

	// Бонусная программа: комиссии за три месяца и итог
	MonthlyCommissions [3]*float64         `json:"monthly_commissions"`
	BonusTier          aggregate.BonusTier `json:"bonus_tier"`
	BonusAmount        float64             `json:"bonus_amount"`
	TotalRevenue       float64             `json:"total_revenue"`
}

// HandleGetReport возвращает отчёт за период вместе с расчётом бонуса.
// Запрос, перекрытый более новым (смена фильтра), отбрасывается.
func (h *Handler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	window, ok := h.parseWindow(r)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid window")
		return
	}

	metrics, committed := h.data.WindowedMetrics(r.Context(), viewReports, window)
	if !committed {
		h.respondError(w, http.StatusConflict, "Request superseded")
		return
	}

	now := time.Now()

	commissions := aggregate.MonthlyCommissions(h.data.Trades(), now, h.rates)
	tier := aggregate.ResolveBonusTier(commissions)

	var current float64
	if commissions[2] != nil {
		current = *commissions[2]
	}

	bonus := aggregate.BonusAmount(current, tier)

	h.respondJSON(w, http.StatusOK, ReportResponse{
		Window:             window,
		Metrics:            metrics,
		MonthlyCommissions: commissions,
		BonusTier:          tier,
		BonusAmount:        bonus,
		TotalRevenue:       aggregate.TotalRevenueWithBonus(metrics.TotalRevenue, bonus),
	})
}
