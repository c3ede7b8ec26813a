package aggregate

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"ib_dashboard/internal/models"

	"github.com/google/uuid"
)

// Aggregator сводит торговые аккаунты и сделки в клиентов партнёра
type Aggregator struct {
	logger *slog.Logger
}

// New создает новый Aggregator
func New(logger *slog.Logger) *Aggregator {
	return &Aggregator{logger: logger}
}

// Aggregate строит по одному Client на пользователя платформы.
// Финансовые поля суммируются только по реальным аккаунтам,
// лоты только по закрытым сделкам реальных аккаунтов.
func (a *Aggregator) Aggregate(accounts []models.TradingAccount, trades []models.Trade) []models.Client {
	groups := make(map[string]*models.Client)
	order := make([]string, 0)

	for _, acc := range accounts {
		key := groupKey(acc.Owner)

		client, ok := groups[key]
		if !ok {
			client = newClient(key, acc.Owner)
			groups[key] = client
			order = append(order, key)
		}

		mergeOwner(client, acc.Owner)
		client.Accounts = append(client.Accounts, acc)

		if !acc.IsReal() {
			// Демо-аккаунты в финансовые суммы не входят
			continue
		}

		client.HasRealAccounts = true
		client.RealAccountIDs = append(client.RealAccountIDs, acc.ID)
		client.Deposit += acc.Deposit
		client.Equity += acc.Equity
		client.Balance += acc.Balance
		client.FreeMargin += acc.FreeMargin
		client.ClosedPL += acc.ClosedPL
		client.OpenPL += acc.OpenPL
	}

	for _, client := range groups {
		resolveKYC(client)
		resolveCountry(client)
	}

	a.applyLots(groups, trades)

	clients := make([]models.Client, 0, len(order))
	for _, key := range order {
		clients = append(clients, *groups[key])
	}

	sort.Slice(clients, func(i, j int) bool {
		if clients[i].Name != clients[j].Name {
			return clients[i].Name < clients[j].Name
		}

		return clients[i].ID < clients[j].ID
	})

	a.logger.Debug("clients aggregated",
		slog.Int("accounts", len(accounts)),
		slog.Int("clients", len(clients)))

	return clients
}

// applyLots считает лоты вторым проходом: сумма объёма закрытых сделок
// по реальным аккаунтам клиента. Из полей аккаунта лоты не читаются никогда.
func (a *Aggregator) applyLots(groups map[string]*models.Client, trades []models.Trade) {
	byAccount := make(map[int64]*models.Client)
	for _, client := range groups {
		for _, id := range client.RealAccountIDs {
			byAccount[id] = client
		}
	}

	for _, trade := range trades {
		if !trade.Closed {
			continue
		}

		client, ok := byAccount[trade.AccountID]
		if !ok {
			// Сделка по неизвестному аккаунту пропускается, это не ошибка
			a.logger.Debug("trade references unknown account",
				slog.Int64("ticket", trade.Ticket),
				slog.Int64("account_id", trade.AccountID))

			continue
		}

		client.Lots += trade.Volume
	}
}

// EnrichFromLeads дозаполняет профили клиентов из записей лидов.
// Лид ищется по id, затем по email, затем по username; заполняются
// только пустые поля, финансовые суммы не трогаются никогда.
func (a *Aggregator) EnrichFromLeads(clients []models.Client, leads []models.Lead) {
	if len(leads) == 0 {
		return
	}

	byID := make(map[int64]models.Lead, len(leads))
	byEmail := make(map[string]models.Lead, len(leads))
	byUsername := make(map[string]models.Lead, len(leads))

	for _, lead := range leads {
		if lead.ID != 0 {
			byID[lead.ID] = lead
		}

		if lead.Email != "" {
			byEmail[strings.ToLower(lead.Email)] = lead
		}

		if lead.Username != "" {
			byUsername[strings.ToLower(lead.Username)] = lead
		}
	}

	enriched := 0

	for i := range clients {
		lead, ok := matchLead(&clients[i], byID, byEmail, byUsername)
		if !ok {
			continue
		}

		fillFromLead(&clients[i], lead)
		enriched++
	}

	a.logger.Debug("clients enriched from leads",
		slog.Int("leads", len(leads)),
		slog.Int("enriched", enriched))
}

func matchLead(client *models.Client, byID map[int64]models.Lead, byEmail, byUsername map[string]models.Lead) (models.Lead, bool) {
	if client.ID != 0 {
		if lead, ok := byID[client.ID]; ok {
			return lead, true
		}
	}

	if client.Email != "" {
		if lead, ok := byEmail[strings.ToLower(client.Email)]; ok {
			return lead, true
		}
	}

	if client.Username != "" {
		if lead, ok := byUsername[strings.ToLower(client.Username)]; ok {
			return lead, true
		}
	}

	return models.Lead{}, false
}

func fillFromLead(client *models.Client, lead models.Lead) {
	if client.Username == "" {
		client.Username = lead.Username
	}

	if client.Name == "" {
		client.Name = lead.Name
	}

	if client.Email == "" {
		client.Email = lead.Email
	}

	if client.Phone == "" {
		client.Phone = lead.Phone
	}

	if client.Status == "" {
		client.Status = lead.Status
	}

	if client.Risk == "" {
		client.Risk = lead.Risk
	}

	if client.ReferrerRef == "" {
		client.ReferrerRef = lead.ReferrerRef
	}

	if client.ReferralCode == "" {
		client.ReferralCode = lead.ReferralCode
	}

	if client.Commission == 0 {
		client.Commission = lead.Commission
	}

	if client.Country == "Unknown" {
		if lead.CountryName != "" {
			client.Country = lead.CountryName
		} else if lead.CountryCode != "" {
			client.Country = lead.CountryCode
		}
	}
}

// groupKey выбирает ключ группировки: id > email > alias > синтетический uuid
func groupKey(owner models.Lead) string {
	if owner.ID != 0 {
		return "id:" + strconv.FormatInt(owner.ID, 10)
	}

	if owner.Email != "" {
		return "email:" + owner.Email
	}

	if owner.Username != "" {
		return "alias:" + owner.Username
	}

	return "uuid:" + uuid.NewString()
}

func newClient(key string, owner models.Lead) *models.Client {
	return &models.Client{
		ID:  owner.ID,
		Key: key,
	}
}

// mergeOwner дозаполняет профиль клиента из записи владельца аккаунта.
// Первое непустое значение выигрывает.
func mergeOwner(client *models.Client, owner models.Lead) {
	if client.ID == 0 {
		client.ID = owner.ID
	}

	if client.Username == "" {
		client.Username = owner.Username
	}

	if client.Name == "" {
		client.Name = owner.Name
	}

	if client.Email == "" {
		client.Email = owner.Email
	}

	if client.Phone == "" {
		client.Phone = owner.Phone
	}

	if client.Status == "" {
		client.Status = owner.Status
	}

	if client.Risk == "" {
		client.Risk = owner.Risk
	}

	if client.ReferrerRef == "" {
		client.ReferrerRef = owner.ReferrerRef
	}

	if client.ReferralCode == "" {
		client.ReferralCode = owner.ReferralCode
	}

	if client.Commission == 0 {
		client.Commission = owner.Commission
	}
}

// resolveKYC применяет приоритет источников:
// явный флаг пользователя > активный реальный аккаунт > Pending
func resolveKYC(client *models.Client) {
	for _, acc := range client.Accounts {
		if acc.Owner.Approved != nil {
			client.Approved = *acc.Owner.Approved
			client.KYCSource = models.KYCSourceUserFlag
			client.KYCStatus = models.KYCPending

			if client.Approved {
				client.KYCStatus = models.KYCApproved
			}

			return
		}
	}

	for _, acc := range client.Accounts {
		if acc.IsReal() && acc.Active {
			client.Approved = true
			client.KYCStatus = models.KYCApproved
			client.KYCSource = models.KYCSourceActiveReal

			return
		}
	}

	client.Approved = false
	client.KYCStatus = models.KYCPending
	client.KYCSource = models.KYCSourceDefault
}

// resolveCountry: название страны > код > компания > Unknown
func resolveCountry(client *models.Client) {
	for _, acc := range client.Accounts {
		if acc.Owner.CountryName != "" {
			client.Country = acc.Owner.CountryName
			return
		}
	}

	for _, acc := range client.Accounts {
		if acc.Owner.CountryCode != "" {
			client.Country = acc.Owner.CountryCode
			return
		}
	}

	for _, acc := range client.Accounts {
		if acc.Owner.Company != "" {
			client.Country = acc.Owner.Company
			return
		}
	}

	client.Country = "Unknown"
}
