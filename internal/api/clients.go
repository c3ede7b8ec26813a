package api

import (
	"net/http"
	"strconv"

	"ib_dashboard/internal/aggregate"
	"ib_dashboard/internal/models"

	"github.com/gorilla/mux"
)

type ClientsResponse struct {
	Clients []models.Client `json:"clients"`
	Total   int             `json:"total"`

	// Метрики дашборда за выбранный период
	Metrics *aggregate.MetricsResult `json:"metrics,omitempty"`
}

// HandleGetClients возвращает агрегированный список клиентов партнёра
// и метрики дашборда за период. С ?refresh=1 сначала перечитывает
// данные с платформы. Запрос, перекрытый сменой фильтра, отбрасывается.
func (h *Handler) HandleGetClients(w http.ResponseWriter, r *http.Request) {
	window, ok := h.parseWindow(r)
	if !ok {
		h.respondError(w, http.StatusBadRequest, "Invalid window")
		return
	}

	if r.URL.Query().Get("refresh") == "1" {
		if err := h.data.Refresh(r.Context()); err != nil {
			h.logger.Error("Failed to refresh platform data", "error", err)
			h.respondError(w, http.StatusBadGateway, "Platform unavailable")

			return
		}
	}

	metrics, committed := h.data.WindowedMetrics(r.Context(), viewDashboard, window)
	if !committed {
		h.respondError(w, http.StatusConflict, "Request superseded")
		return
	}

	clients := h.data.Clients()
	if clients == nil {
		clients = []models.Client{}
	}

	h.respondJSON(w, http.StatusOK, ClientsResponse{
		Clients: clients,
		Total:   len(clients),
		Metrics: &metrics,
	})
}

type ClientDetailResponse struct {
	models.Client

	// Депозиты/выводы/корректировки по аккаунтам клиента
	Transactions []models.Transaction `json:"transactions"`
}

// HandleGetClient возвращает одного клиента с аккаунтами и транзакциями
func (h *Handler) HandleGetClient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid client ID")
		return
	}

	for _, client := range h.data.Clients() {
		if client.ID == id {
			h.respondJSON(w, http.StatusOK, ClientDetailResponse{
				Client:       client,
				Transactions: h.clientTransactions(r, client),
			})

			return
		}
	}

	h.respondError(w, http.StatusNotFound, "Client not found")
}

// clientTransactions выбирает транзакции по аккаунтам клиента.
// Отказ выборки не валит drill-down, список просто остаётся пустым.
func (h *Handler) clientTransactions(r *http.Request, client models.Client) []models.Transaction {
	transactions := []models.Transaction{}

	all, err := h.platform.GetTransactions(r.Context())
	if err != nil {
		h.logger.Warn("⚠️  Transactions fetch failed", "client_id", client.ID, "error", err)

		return transactions
	}

	accountIDs := make(map[int64]bool, len(client.Accounts))
	for _, acc := range client.Accounts {
		accountIDs[acc.ID] = true
	}

	for _, tx := range all {
		if accountIDs[tx.AccountID] {
			transactions = append(transactions, tx)
		}
	}

	return transactions
}
