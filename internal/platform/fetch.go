package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"ib_dashboard/internal/models"
)

// Команды выборки данных
const (
	cmdLeads        = "leads"
	cmdAccounts     = "accounts"
	cmdTrades       = "trades"
	cmdTransactions = "transactions"
)

// GetLeads запрашивает лидов/клиентов партнёра
func (m *SessionManager) GetLeads(ctx context.Context) ([]models.Lead, error) {
	raws, err := m.fetchRecords(ctx, cmdLeads)
	if err != nil {
		return nil, err
	}

	leads := make([]models.Lead, 0, len(raws))
	for _, raw := range raws {
		leads = append(leads, NormalizeLead(raw))
	}

	return leads, nil
}

// GetTradingAccounts запрашивает торговые аккаунты
func (m *SessionManager) GetTradingAccounts(ctx context.Context) ([]models.TradingAccount, error) {
	raws, err := m.fetchRecords(ctx, cmdAccounts)
	if err != nil {
		return nil, err
	}

	accounts := make([]models.TradingAccount, 0, len(raws))
	for _, raw := range raws {
		accounts = append(accounts, NormalizeTradingAccount(raw))
	}

	return accounts, nil
}

// GetTrades запрашивает историю сделок
func (m *SessionManager) GetTrades(ctx context.Context) ([]models.Trade, error) {
	raws, err := m.fetchRecords(ctx, cmdTrades)
	if err != nil {
		return nil, err
	}

	trades := make([]models.Trade, 0, len(raws))
	for _, raw := range raws {
		trades = append(trades, NormalizeTrade(raw))
	}

	return trades, nil
}

// GetTransactions запрашивает депозиты/выводы/корректировки
func (m *SessionManager) GetTransactions(ctx context.Context) ([]models.Transaction, error) {
	raws, err := m.fetchRecords(ctx, cmdTransactions)
	if err != nil {
		return nil, err
	}

	txs := make([]models.Transaction, 0, len(raws))
	for _, raw := range raws {
		txs = append(txs, NormalizeTransaction(raw))
	}

	return txs, nil
}

// fetchRecords выполняет запрос и разбирает массив сырых записей.
// Битые элементы логируются и пропускаются, частичный результат
// лучше пустого.
func (m *SessionManager) fetchRecords(ctx context.Context, command string) ([]map[string]any, error) {
	if _, err := m.GetSession(); err != nil {
		return nil, err
	}

	data, err := m.Call(ctx, command, nil)
	if err != nil {
		return nil, err
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("fetch %s: bad payload: %w", command, err)
	}

	records := make([]map[string]any, 0, len(items))

	for i, item := range items {
		var raw map[string]any
		if err := json.Unmarshal(item, &raw); err != nil {
			m.logger.Warn("⚠️  Skipping malformed record",
				slog.String("command", command),
				slog.Int("index", i),
				slog.Any("error", err))

			continue
		}

		records = append(records, raw)
	}

	return records, nil
}
