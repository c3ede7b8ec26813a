package aggregate

import (
	"strings"
	"time"

	"ib_dashboard/internal/models"
)

// CampaignStats считает показатели кампании по её referrer-метке:
// клиенты, пришедшие с меткой, и доход по их сделкам за период.
func CampaignStats(campaign models.Campaign, clients []models.Client, trades []models.Trade, window Window, now time.Time, rates RateTable) models.CampaignStats {
	stats := models.CampaignStats{
		CampaignID: campaign.ID,
		Cost:       campaign.Cost,
	}

	tagged := make(map[int64]bool)

	for _, client := range clients {
		if !matchesTag(client, campaign.ReferrerTag) {
			continue
		}

		stats.Signups++

		if client.HasRealAccounts && client.Lots > 0 {
			stats.ActiveClients++
		}

		for _, id := range client.RealAccountIDs {
			tagged[id] = true
		}
	}

	campaignTrades := make([]models.Trade, 0)
	for _, trade := range trades {
		if tagged[trade.AccountID] {
			campaignTrades = append(campaignTrades, trade)
		}
	}

	stats.TotalRevenue = VolumeAndRevenue(campaignTrades, window, now, rates).TotalRevenue

	return stats
}

// matchesTag сравнивает метку кампании со ссылкой реферера клиента
func matchesTag(client models.Client, tag string) bool {
	if tag == "" {
		return false
	}

	return strings.EqualFold(client.ReferrerRef, tag) ||
		strings.EqualFold(client.ReferralCode, tag)
}
