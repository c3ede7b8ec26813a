package aggregate

import (
	"io"
	"log/slog"
	"testing"

	"ib_dashboard/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func boolPtr(b bool) *bool { return &b }

func realAccount(id int64, owner models.Lead) models.TradingAccount {
	return models.TradingAccount{ID: id, Type: models.AccountTypeReal, Active: true, Owner: owner}
}

func TestAggregateRealOnlyFinancials(t *testing.T) {
	owner := models.Lead{ID: 1, Name: "Alice"}

	accounts := []models.TradingAccount{
		{ID: 10, Type: models.AccountTypeDemo, Deposit: 1000, Equity: 1000, Owner: owner},
		{ID: 11, Type: models.AccountTypeReal, Deposit: 200, Equity: 210, Owner: owner},
	}

	clients := New(testLogger()).Aggregate(accounts, nil)

	if len(clients) != 1 {
		t.Fatalf("expected 1 client, got %d", len(clients))
	}

	c := clients[0]

	if c.Deposit != 200 || c.Equity != 210 {
		t.Errorf("demo balances leaked into financials: deposit=%v equity=%v", c.Deposit, c.Equity)
	}

	if !c.HasRealAccounts || len(c.RealAccountIDs) != 1 || c.RealAccountIDs[0] != 11 {
		t.Errorf("unexpected real accounts: %+v", c.RealAccountIDs)
	}

	// Оба аккаунта видны в drill-down
	if len(c.Accounts) != 2 {
		t.Errorf("expected 2 raw accounts, got %d", len(c.Accounts))
	}
}

func TestAggregateLotsFromClosedTradesOnly(t *testing.T) {
	owner := models.Lead{ID: 1, Name: "Alice"}

	accounts := []models.TradingAccount{
		realAccount(10, owner),
		{ID: 20, Type: models.AccountTypeDemo, Owner: owner},
	}

	trades := []models.Trade{
		{Ticket: 1, AccountID: 10, Volume: 1.5, Closed: true},
		{Ticket: 2, AccountID: 10, Volume: 3.0, Closed: false}, // открыта, не считается
		{Ticket: 3, AccountID: 20, Volume: 2.0, Closed: true},  // демо-аккаунт, не считается
		{Ticket: 4, AccountID: 99, Volume: 5.0, Closed: true},  // неизвестный аккаунт, пропуск
	}

	clients := New(testLogger()).Aggregate(accounts, trades)

	if len(clients) != 1 {
		t.Fatalf("expected 1 client, got %d", len(clients))
	}

	if clients[0].Lots != 1.5 {
		t.Errorf("Lots = %v, want 1.5", clients[0].Lots)
	}
}

func TestAggregateGrouping(t *testing.T) {
	tests := []struct {
		name        string
		accounts    []models.TradingAccount
		wantClients int
	}{
		{
			name: "same id merges",
			accounts: []models.TradingAccount{
				realAccount(10, models.Lead{ID: 1, Name: "Alice"}),
				realAccount(11, models.Lead{ID: 1, Name: "Alice"}),
			},
			wantClients: 1,
		},
		{
			name: "no id falls back to email",
			accounts: []models.TradingAccount{
				realAccount(10, models.Lead{Email: "a@example.com"}),
				realAccount(11, models.Lead{Email: "a@example.com"}),
			},
			wantClients: 1,
		},
		{
			name: "no id or email falls back to alias",
			accounts: []models.TradingAccount{
				realAccount(10, models.Lead{Username: "alice"}),
				realAccount(11, models.Lead{Username: "alice"}),
			},
			wantClients: 1,
		},
		{
			name: "different identities stay separate",
			accounts: []models.TradingAccount{
				realAccount(10, models.Lead{ID: 1}),
				realAccount(11, models.Lead{ID: 2}),
			},
			wantClients: 2,
		},
		{
			name: "no identity at all stays separate",
			accounts: []models.TradingAccount{
				realAccount(10, models.Lead{}),
				realAccount(11, models.Lead{}),
			},
			wantClients: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clients := New(testLogger()).Aggregate(tt.accounts, nil)
			if len(clients) != tt.wantClients {
				t.Errorf("got %d clients, want %d", len(clients), tt.wantClients)
			}
		})
	}
}

func TestResolveKYCPrecedence(t *testing.T) {
	tests := []struct {
		name       string
		accounts   []models.TradingAccount
		wantStatus string
		wantSource string
	}{
		{
			name: "explicit false beats active real",
			accounts: []models.TradingAccount{
				{ID: 10, Type: models.AccountTypeReal, Active: true, Owner: models.Lead{ID: 1, Approved: boolPtr(false)}},
			},
			wantStatus: models.KYCPending,
			wantSource: models.KYCSourceUserFlag,
		},
		{
			name: "explicit true",
			accounts: []models.TradingAccount{
				{ID: 10, Type: models.AccountTypeDemo, Owner: models.Lead{ID: 1, Approved: boolPtr(true)}},
			},
			wantStatus: models.KYCApproved,
			wantSource: models.KYCSourceUserFlag,
		},
		{
			name: "active real without flag approves",
			accounts: []models.TradingAccount{
				realAccount(10, models.Lead{ID: 1}),
			},
			wantStatus: models.KYCApproved,
			wantSource: models.KYCSourceActiveReal,
		},
		{
			name: "inactive real stays pending",
			accounts: []models.TradingAccount{
				{ID: 10, Type: models.AccountTypeReal, Active: false, Owner: models.Lead{ID: 1}},
			},
			wantStatus: models.KYCPending,
			wantSource: models.KYCSourceDefault,
		},
		{
			name: "demo only stays pending",
			accounts: []models.TradingAccount{
				{ID: 10, Type: models.AccountTypeDemo, Active: true, Owner: models.Lead{ID: 1}},
			},
			wantStatus: models.KYCPending,
			wantSource: models.KYCSourceDefault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clients := New(testLogger()).Aggregate(tt.accounts, nil)
			if len(clients) != 1 {
				t.Fatalf("expected 1 client, got %d", len(clients))
			}

			c := clients[0]
			if c.KYCStatus != tt.wantStatus || c.KYCSource != tt.wantSource {
				t.Errorf("KYC = %s/%s, want %s/%s", c.KYCStatus, c.KYCSource, tt.wantStatus, tt.wantSource)
			}
		})
	}
}

func TestResolveCountryFallback(t *testing.T) {
	tests := []struct {
		name  string
		owner models.Lead
		want  string
	}{
		{"name wins", models.Lead{ID: 1, CountryName: "Germany", CountryCode: "DE", Company: "ACME"}, "Germany"},
		{"code next", models.Lead{ID: 1, CountryCode: "DE", Company: "ACME"}, "DE"},
		{"company next", models.Lead{ID: 1, Company: "ACME"}, "ACME"},
		{"unknown", models.Lead{ID: 1}, "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clients := New(testLogger()).Aggregate([]models.TradingAccount{realAccount(10, tt.owner)}, nil)
			if clients[0].Country != tt.want {
				t.Errorf("Country = %q, want %q", clients[0].Country, tt.want)
			}
		})
	}
}

func TestMergeOwnerFirstNonEmptyWins(t *testing.T) {
	accounts := []models.TradingAccount{
		realAccount(10, models.Lead{ID: 1, Name: "Alice", Email: ""}),
		realAccount(11, models.Lead{ID: 1, Name: "Other Name", Email: "alice@example.com"}),
	}

	clients := New(testLogger()).Aggregate(accounts, nil)

	c := clients[0]
	if c.Name != "Alice" {
		t.Errorf("Name = %q, want Alice", c.Name)
	}

	// Пустое поле дозаполняется из следующей записи
	if c.Email != "alice@example.com" {
		t.Errorf("Email = %q, want alice@example.com", c.Email)
	}
}

func TestAggregateSortedByName(t *testing.T) {
	accounts := []models.TradingAccount{
		realAccount(10, models.Lead{ID: 2, Name: "Bob"}),
		realAccount(11, models.Lead{ID: 1, Name: "Alice"}),
	}

	clients := New(testLogger()).Aggregate(accounts, nil)

	if len(clients) != 2 || clients[0].Name != "Alice" || clients[1].Name != "Bob" {
		t.Errorf("unexpected order: %+v", clients)
	}
}

func TestEnrichFromLeads(t *testing.T) {
	aggregator := New(testLogger())

	t.Run("fills only empty fields", func(t *testing.T) {
		clients := []models.Client{{
			ID:      1,
			Name:    "Alice",
			Country: "Unknown",
			Deposit: 500,
		}}

		leads := []models.Lead{{
			ID:          1,
			Name:        "Should Not Overwrite",
			Email:       "alice@example.com",
			Phone:       "+100",
			CountryName: "Cyprus",
			Commission:  4.5,
		}}

		aggregator.EnrichFromLeads(clients, leads)

		got := clients[0]
		if got.Name != "Alice" {
			t.Errorf("name overwritten: %q", got.Name)
		}

		if got.Email != "alice@example.com" || got.Phone != "+100" || got.Country != "Cyprus" {
			t.Errorf("profile not filled: %+v", got)
		}

		if got.Commission != 4.5 {
			t.Errorf("commission = %v, want 4.5", got.Commission)
		}

		// Финансовые суммы лид не трогает
		if got.Deposit != 500 {
			t.Errorf("deposit changed: %v", got.Deposit)
		}
	})

	t.Run("matches by email then username", func(t *testing.T) {
		clients := []models.Client{
			{Email: "Bob@Example.com"},
			{Username: "CAROL"},
		}

		leads := []models.Lead{
			{ID: 2, Email: "bob@example.com", Phone: "+200"},
			{ID: 3, Username: "carol", Phone: "+300"},
		}

		aggregator.EnrichFromLeads(clients, leads)

		if clients[0].Phone != "+200" {
			t.Errorf("email match failed: %+v", clients[0])
		}

		if clients[1].Phone != "+300" {
			t.Errorf("username match failed: %+v", clients[1])
		}
	})

	t.Run("unmatched client stays intact", func(t *testing.T) {
		clients := []models.Client{{ID: 9, Name: "Dave"}}

		aggregator.EnrichFromLeads(clients, []models.Lead{{ID: 1, Phone: "+100"}})

		if clients[0].Phone != "" {
			t.Errorf("unexpected enrichment: %+v", clients[0])
		}
	})
}
