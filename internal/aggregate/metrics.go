package aggregate

import (
	"strings"
	"time"

	"ib_dashboard/internal/models"
)

// Window представляет период выборки для отчётов и дашборда
type Window string

const (
	WindowToday    Window = "today"
	WindowWeek     Window = "week"
	WindowMonth    Window = "month"
	WindowQuarter  Window = "quarter"
	WindowYear     Window = "year"
	WindowLifetime Window = "lifetime"
)

// ParseWindow разбирает значение фильтра из запроса
func ParseWindow(s string) (Window, bool) {
	switch Window(strings.ToLower(strings.TrimSpace(s))) {
	case WindowToday:
		return WindowToday, true
	case WindowWeek:
		return WindowWeek, true
	case WindowMonth:
		return WindowMonth, true
	case WindowQuarter:
		return WindowQuarter, true
	case WindowYear:
		return WindowYear, true
	case WindowLifetime, "":
		return WindowLifetime, true
	}

	return "", false
}

// Range возвращает границы периода в локальном календаре вызывающего.
// Конец всегда 23:59:59.999 последнего дня, не полночь, иначе
// активность текущего дня обрезается.
func (w Window) Range(now time.Time) (time.Time, time.Time) {
	loc := now.Location()
	end := endOfDay(now)

	switch w {
	case WindowToday:
		return startOfDay(now), end
	case WindowWeek:
		// Неделя начинается с понедельника
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7
		}

		start := startOfDay(now.AddDate(0, 0, -(weekday - 1)))

		return start, end
	case WindowMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc), end
	case WindowQuarter:
		quarterMonth := time.Month((int(now.Month())-1)/3*3 + 1)

		return time.Date(now.Year(), quarterMonth, 1, 0, 0, 0, 0, loc), end
	case WindowYear:
		return time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, loc), end
	default:
		return time.Unix(0, 0), end
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999000000, t.Location())
}

// RateTable хранит ставки комиссии за лот по классу инструмента.
// У брокера они настраиваемые, поэтому это данные, а не код.
type RateTable struct {
	Metals  float64
	Default float64
}

// DefaultRateTable возвращает действующие ставки брокера
func DefaultRateTable() RateTable {
	return RateTable{
		Metals:  8.0,
		Default: 4.5,
	}
}

// Rate возвращает ставку за лот для инструмента
func (r RateTable) Rate(symbol string) float64 {
	if isMetal(symbol) {
		return r.Metals
	}

	return r.Default
}

func isMetal(symbol string) bool {
	s := strings.ToUpper(symbol)

	return strings.HasPrefix(s, "XAU") || strings.HasPrefix(s, "XAG") ||
		strings.Contains(s, "GOLD") || strings.Contains(s, "SILVER")
}

// MetricsResult содержит объём/доход/P&L за период
type MetricsResult struct {
	TotalVolume  float64        `json:"total_volume"`
	TotalRevenue float64        `json:"total_revenue"`
	TotalPL      float64        `json:"total_pl"`
	Trades       []models.Trade `json:"trades"`
}

// VolumeAndRevenue считает показатели по закрытым сделкам внутри периода.
// Доходом сделки считается её комиссия; если комиссии нет, объём умножается
// на ставку инструмента из таблицы.
func VolumeAndRevenue(trades []models.Trade, window Window, now time.Time, rates RateTable) MetricsResult {
	start, end := window.Range(now)
	startMs, endMs := start.UnixMilli(), end.UnixMilli()

	result := MetricsResult{Trades: make([]models.Trade, 0)}

	for _, trade := range trades {
		if !trade.Closed || trade.CloseTime < startMs || trade.CloseTime > endMs {
			continue
		}

		result.Trades = append(result.Trades, trade)
		result.TotalVolume += trade.Volume
		result.TotalPL += trade.Profit

		if trade.Commission != 0 {
			result.TotalRevenue += trade.Commission
		} else {
			result.TotalRevenue += trade.Volume * rates.Rate(trade.Symbol)
		}
	}

	return result
}

// MonthlyCommissions считает комиссионный доход за три последних
// календарных месяца: [позапрошлый, прошлый, текущий]. Месяц без
// единой закрытой сделки остаётся nil и в среднее не входит.
func MonthlyCommissions(trades []models.Trade, now time.Time, rates RateTable) [3]*float64 {
	var result [3]*float64

	for i := 0; i < 3; i++ {
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, i-2, 0)
		monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Millisecond)

		startMs, endMs := monthStart.UnixMilli(), monthEnd.UnixMilli()

		var revenue float64
		var seen bool

		for _, trade := range trades {
			if !trade.Closed || trade.CloseTime < startMs || trade.CloseTime > endMs {
				continue
			}

			seen = true

			if trade.Commission != 0 {
				revenue += trade.Commission
			} else {
				revenue += trade.Volume * rates.Rate(trade.Symbol)
			}
		}

		if seen {
			value := revenue
			result[i] = &value
		}
	}

	return result
}

// BonusTier представляет ступень бонусной программы
type BonusTier struct {
	Tier  int     `json:"tier"`
	Rate  float64 `json:"rate"`
	Label string  `json:"label"`
}

// ResolveBonusTier применяет ступени к среднему за три месяца.
// commissions хранит [старший, средний, последний] месяц, nil значит месяца нет.
// Пороги строго по убыванию: 4500 / 1000 / 450.
func ResolveBonusTier(commissions [3]*float64) BonusTier {
	var sum float64
	var n int

	for _, c := range commissions {
		if c != nil {
			sum += *c
			n++
		}
	}

	var mean float64
	if n > 0 {
		mean = sum / float64(n)
	}

	switch {
	case mean >= 4500:
		return BonusTier{Tier: 3, Rate: 0.10, Label: "Tier 3"}
	case mean >= 1000:
		return BonusTier{Tier: 2, Rate: 0.08, Label: "Tier 2"}
	case mean >= 450:
		return BonusTier{Tier: 1, Rate: 0.04, Label: "Tier 1"}
	default:
		return BonusTier{Tier: 0, Rate: 0, Label: "Base"}
	}
}

// BonusAmount считает надбавку к комиссии текущего месяца
func BonusAmount(currentMonthCommission float64, tier BonusTier) float64 {
	return currentMonthCommission * tier.Rate
}

// TotalRevenueWithBonus складывает базовую комиссию и бонус.
// Одна и та же формула для дашборда, отчётов и выплат.
func TotalRevenueWithBonus(baseCommission float64, bonus float64) float64 {
	return baseCommission + bonus
}
