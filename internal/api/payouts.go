package api

import (
	"encoding/json"
	"net/http"
	"time"

	apimw "ib_dashboard/internal/api/middleware"
	"ib_dashboard/internal/aggregate"
	"ib_dashboard/internal/models"
)

type PayoutsResponse struct {
	Payouts []models.PayoutRequest `json:"payouts"`

	// Сводка к выплате: базовая комиссия + бонус минус уже запрошенное
	BaseCommission float64             `json:"base_commission"`
	BonusTier      aggregate.BonusTier `json:"bonus_tier"`
	BonusAmount    float64             `json:"bonus_amount"`
	Payable        float64             `json:"payable"`
}

// payable считает доступную к выплате сумму: та же формула комиссии и
// бонуса, что на дашборде и в отчётах, минус нефинальные заявки.
func (h *Handler) payable(payouts []models.PayoutRequest) (float64, float64, aggregate.BonusTier, float64) {
	now := time.Now()
	trades := h.data.Trades()

	base := aggregate.VolumeAndRevenue(trades, aggregate.WindowLifetime, now, h.rates).TotalRevenue

	commissions := aggregate.MonthlyCommissions(trades, now, h.rates)
	tier := aggregate.ResolveBonusTier(commissions)

	var current float64
	if commissions[2] != nil {
		current = *commissions[2]
	}

	bonus := aggregate.BonusAmount(current, tier)
	available := aggregate.TotalRevenueWithBonus(base, bonus)

	for _, p := range payouts {
		if p.Status != models.PayoutRejected {
			available -= p.Amount
		}
	}

	return base, bonus, tier, available
}

// HandleGetPayouts возвращает заявки пользователя и сводку к выплате
func (h *Handler) HandleGetPayouts(w http.ResponseWriter, r *http.Request) {
	userID, _ := apimw.GetUserID(r.Context())

	payouts, err := h.storage.GetPayoutRequests(userID)
	if err != nil {
		h.logger.Error("Failed to get payouts", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Internal error")

		return
	}

	if payouts == nil {
		payouts = []models.PayoutRequest{}
	}

	base, bonus, tier, available := h.payable(payouts)

	h.respondJSON(w, http.StatusOK, PayoutsResponse{
		Payouts:        payouts,
		BaseCommission: base,
		BonusTier:      tier,
		BonusAmount:    bonus,
		Payable:        available,
	})
}

type CreatePayoutRequest struct {
	Amount  float64 `json:"amount"`
	Comment string  `json:"comment"`
}

// HandleCreatePayout создает заявку на выплату.
// Сумма не может превышать доступную к выплате.
func (h *Handler) HandleCreatePayout(w http.ResponseWriter, r *http.Request) {
	userID, _ := apimw.GetUserID(r.Context())
	username, _ := apimw.GetUsername(r.Context())

	var req CreatePayoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Amount <= 0 {
		h.respondError(w, http.StatusBadRequest, "Amount must be positive")
		return
	}

	existing, err := h.storage.GetPayoutRequests(userID)
	if err != nil {
		h.logger.Error("Failed to get payouts", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Internal error")

		return
	}

	if _, _, _, available := h.payable(existing); req.Amount > available {
		h.respondError(w, http.StatusUnprocessableEntity, "Amount exceeds payable balance")
		return
	}

	payout, err := h.storage.CreatePayoutRequest(userID, req.Amount, req.Comment)
	if err != nil {
		h.logger.Error("Failed to create payout request", "error", err)
		h.respondError(w, http.StatusInternalServerError, "Internal error")

		return
	}

	h.storage.AddLog(r.Context(), models.ActivityLog{
		UserID:  &userID,
		Level:   "info",
		Action:  "payout_requested",
		Message: "Payout request created",
	})

	settings, _ := h.storage.GetSettings(userID)
	if settings.NotifyPayouts && h.notifier.Enabled() {
		h.notifier.PayoutRequested(username, req.Amount)
	}

	h.respondJSON(w, http.StatusCreated, payout)
}
