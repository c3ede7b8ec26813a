package api

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ib_dashboard/internal/aggregate"
	"ib_dashboard/internal/models"
	"ib_dashboard/internal/platform"
)

// Имена представлений с фильтром периода: у каждого свой координатор,
// чтобы смена фильтра в одном не трогала другие
const (
	viewDashboard = "dashboard"
	viewReports   = "reports"
	viewNetwork   = "network"
)

// DataService держит последний агрегированный снимок данных платформы
// и прогоняет все фильтро-зависимые выборки через координаторы.
type DataService struct {
	platform   *platform.SessionManager
	aggregator *aggregate.Aggregator
	rates      aggregate.RateTable
	logger     *slog.Logger

	mu      sync.RWMutex
	clients []models.Client
	trades  []models.Trade

	coordMu      sync.Mutex
	coordinators map[string]*aggregate.Coordinator
}

// NewDataService создает новый DataService
func NewDataService(pm *platform.SessionManager, aggregator *aggregate.Aggregator, rates aggregate.RateTable, logger *slog.Logger) *DataService {
	return &DataService{
		platform:     pm,
		aggregator:   aggregator,
		rates:        rates,
		logger:       logger,
		coordinators: make(map[string]*aggregate.Coordinator),
	}
}

// Refresh выполняет полный цикл выборки и агрегации.
// Отказ одной выборки не валит весь цикл: работаем с тем, что есть.
func (d *DataService) Refresh(ctx context.Context) error {
	accounts, err := d.platform.GetTradingAccounts(ctx)
	if err != nil {
		return err
	}

	trades, err := d.platform.GetTrades(ctx)
	if err != nil {
		d.logger.Warn("⚠️  Trades fetch failed, aggregating without lots", slog.Any("error", err))

		trades = nil
	}

	leads, err := d.platform.GetLeads(ctx)
	if err != nil {
		d.logger.Warn("⚠️  Leads fetch failed, profiles stay account-only", slog.Any("error", err))

		leads = nil
	}

	clients := d.aggregator.Aggregate(accounts, trades)
	d.aggregator.EnrichFromLeads(clients, leads)

	d.mu.Lock()
	d.clients = clients
	d.trades = trades
	d.mu.Unlock()

	d.logger.Info("📊 Data snapshot refreshed",
		slog.Int("clients", len(clients)),
		slog.Int("trades", len(trades)))

	return nil
}

// Clients возвращает последний агрегированный снимок клиентов
func (d *DataService) Clients() []models.Client {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.clients
}

// Trades возвращает последний снимок сделок
func (d *DataService) Trades() []models.Trade {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.trades
}

func (d *DataService) coordinator(view string) *aggregate.Coordinator {
	d.coordMu.Lock()
	defer d.coordMu.Unlock()

	co, ok := d.coordinators[view]
	if !ok {
		co = aggregate.NewCoordinator(d.logger)
		d.coordinators[view] = co
	}

	return co
}

// WindowedMetrics считает метрики представления за период.
// Смена фильтра до завершения выборки делает этот запрос устаревшим,
// его результат отбрасывается; состояние никогда не перезаписывается
// более старым запросом.
func (d *DataService) WindowedMetrics(ctx context.Context, view string, window aggregate.Window) (aggregate.MetricsResult, bool) {
	co := d.coordinator(view)
	token := co.Begin()

	// Граница await: выборка свежих сделок, если сессия жива
	if trades, err := d.platform.GetTrades(ctx); err == nil {
		if !co.Stale(token) {
			d.mu.Lock()
			d.trades = trades
			d.mu.Unlock()
		}
	}

	if co.Stale(token) {
		return aggregate.MetricsResult{}, false
	}

	result := aggregate.VolumeAndRevenue(d.Trades(), window, time.Now(), d.rates)

	committed := co.Commit(token, func() {})

	return result, committed
}

// Close помечает все незавершённые выборки устаревшими
func (d *DataService) Close() {
	d.coordMu.Lock()
	defer d.coordMu.Unlock()

	for _, co := range d.coordinators {
		co.Close()
	}
}
