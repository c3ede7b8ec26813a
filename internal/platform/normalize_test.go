package platform

import (
	"testing"
	"time"

	"ib_dashboard/internal/models"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   int64
		wantOK bool
	}{
		{"nil", nil, 0, false},
		{"seconds", float64(1700000000), 1700000000000, true},
		{"millis", float64(1700000000000), 1700000000000, true},
		{"seconds string", "1700000000", 1700000000000, true},
		{"millis string", "1700000000000", 1700000000000, true},
		{"zero", float64(0), 0, true},
		{"rfc3339", "2023-11-14T22:13:20Z", 1700000000000, true},
		{"date only", "2023-11-14", 1699920000000, true},
		{"garbage", "not-a-date", 0, false},
		{"empty string", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTimestamp(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ParseTimestamp(%v) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}

			if ok && got != tt.want {
				t.Errorf("ParseTimestamp(%v) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseTimestampTime(t *testing.T) {
	now := time.Now()

	got, ok := ParseTimestamp(now)
	if !ok || got != now.UnixMilli() {
		t.Errorf("ParseTimestamp(time.Time) = %d, %v; want %d, true", got, ok, now.UnixMilli())
	}
}

func TestNormalizeTradeFieldVariants(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want models.Trade
	}{
		{
			name: "short keys",
			raw: map[string]any{
				"Ticket": float64(100),
				"AID":    float64(10),
				"SYM":    "XAUUSD",
				"VU":     1.5,
				"PL":     25.0,
				"CM":     4.5,
				"SD":     float64(1),
				"CT":     float64(1700000000),
			},
			want: models.Trade{
				Ticket: 100, AccountID: 10, Symbol: "XAUUSD",
				Volume: 1.5, Profit: 25.0, Commission: 4.5,
				Side: models.SideSell, CloseTime: 1700000000000, Closed: true,
			},
		},
		{
			name: "long keys",
			raw: map[string]any{
				"Ticket":    float64(101),
				"AccountID": float64(11),
				"Symbol":    "EURUSD",
				"Volume":    2.0,
				"Profit":    -10.0,
				"Side":      "buy",
			},
			want: models.Trade{
				Ticket: 101, AccountID: 11, Symbol: "EURUSD",
				Volume: 2.0, Profit: -10.0, Side: models.SideBuy,
			},
		},
		{
			name: "short key wins over long",
			raw: map[string]any{
				"VU":     0.5,
				"Volume": 99.0,
				"PL":     1.0,
				"Profit": 99.0,
			},
			want: models.Trade{Volume: 0.5, Profit: 1.0},
		},
		{
			name: "open trade has no close time",
			raw: map[string]any{
				"Ticket": float64(102),
				"OT":     float64(1700000000),
			},
			want: models.Trade{Ticket: 102, OpenTime: 1700000000000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTrade(tt.raw)
			if got != tt.want {
				t.Errorf("NormalizeTrade() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNormalizeTradingAccountType(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want string
	}{
		{"demo flag true", map[string]any{"IsDemo": true}, models.AccountTypeDemo},
		{"demo flag false", map[string]any{"IsDemo": false}, models.AccountTypeReal},
		{"type real", map[string]any{"Type": "Real"}, models.AccountTypeReal},
		{"type live", map[string]any{"AccountType": "LIVE"}, models.AccountTypeReal},
		{"type practice", map[string]any{"AT": "practice"}, models.AccountTypeDemo},
		{"flag wins over type", map[string]any{"IsDemo": true, "Type": "real"}, models.AccountTypeDemo},
		{"unknown defaults to demo", map[string]any{"Type": "weird"}, models.AccountTypeDemo},
		{"missing defaults to demo", map[string]any{}, models.AccountTypeDemo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTradingAccount(tt.raw).Type; got != tt.want {
				t.Errorf("account type = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeTradingAccountFields(t *testing.T) {
	raw := map[string]any{
		"ID":          float64(42),
		"IsDemo":      false,
		"Active":      true,
		"NetDeposits": 500.0,
		"EQ":          510.0,
		"BA":          505.0,
		"FM":          300.0,
		"CPL":         10.0,
		"OPL":         -2.0,
		"User": map[string]any{
			"ID":    float64(7),
			"Login": "alice",
			"Email": "alice@example.com",
		},
	}

	acc := NormalizeTradingAccount(raw)

	if acc.ID != 42 || !acc.Active || acc.Type != models.AccountTypeReal {
		t.Fatalf("unexpected account identity: %+v", acc)
	}

	if acc.Deposit != 500 || acc.Equity != 510 || acc.Balance != 505 || acc.FreeMargin != 300 {
		t.Errorf("unexpected balances: %+v", acc)
	}

	if acc.ClosedPL != 10 || acc.OpenPL != -2 {
		t.Errorf("unexpected P&L: %+v", acc)
	}

	if acc.Owner.ID != 7 || acc.Owner.Username != "alice" || acc.Owner.Email != "alice@example.com" {
		t.Errorf("unexpected owner: %+v", acc.Owner)
	}
}

func TestNormalizeTradingAccountIgnoresVolumeKeys(t *testing.T) {
	raw := map[string]any{
		"ID":          float64(42),
		"IsDemo":      false,
		"Active":      true,
		"NetDeposits": 500.0,
		"EQ":          510.0,
		"BA":          505.0,
		"FM":          300.0,
		"CPL":         10.0,
		"OPL":         -2.0,
	}

	want := NormalizeTradingAccount(raw)

	// Объём у аккаунта не читается: лоты считаются по закрытым сделкам
	raw["VU"] = 123.0
	raw["Volume"] = 456.0

	if got := NormalizeTradingAccount(raw); got != want {
		t.Errorf("volume keys leaked into account: got %+v, want %+v", got, want)
	}
}

func TestNormalizeTransactionFieldVariants(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		want models.Transaction
	}{
		{
			name: "short keys",
			raw: map[string]any{
				"TxID":  float64(900),
				"AID":   float64(10),
				"SD":    float64(2),
				"AM":    -150.0,
				"DT":    float64(1700000000),
				"State": "Done",
			},
			want: models.Transaction{
				ID: 900, AccountID: 10, Side: models.TxWithdrawal,
				Amount: -150.0, Time: 1700000000000, Status: "Done",
			},
		},
		{
			name: "long keys",
			raw: map[string]any{
				"ID":        float64(901),
				"AccountID": float64(11),
				"Side":      float64(1),
				"Amount":    300.0,
				"Time":      float64(1700000000000),
				"Status":    "Pending",
			},
			want: models.Transaction{
				ID: 901, AccountID: 11, Side: models.TxDeposit,
				Amount: 300.0, Time: 1700000000000, Status: "Pending",
			},
		},
		{
			name: "login as account reference",
			raw: map[string]any{
				"ID":    float64(902),
				"Login": float64(12),
				"Type":  float64(3),
			},
			want: models.Transaction{ID: 902, AccountID: 12, Side: models.TxAdjustment},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeTransaction(tt.raw)
			if got != tt.want {
				t.Errorf("NormalizeTransaction() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestNormalizeLeadApproved(t *testing.T) {
	t.Run("missing flag stays nil", func(t *testing.T) {
		lead := NormalizeLead(map[string]any{"ID": float64(1)})
		if lead.Approved != nil {
			t.Errorf("Approved = %v, want nil", *lead.Approved)
		}
	})

	t.Run("explicit false is kept", func(t *testing.T) {
		lead := NormalizeLead(map[string]any{"ID": float64(1), "Approved": false})
		if lead.Approved == nil || *lead.Approved {
			t.Errorf("Approved = %v, want false", lead.Approved)
		}
	})

	t.Run("string true", func(t *testing.T) {
		lead := NormalizeLead(map[string]any{"ID": float64(1), "KYCApproved": "yes"})
		if lead.Approved == nil || !*lead.Approved {
			t.Errorf("Approved = %v, want true", lead.Approved)
		}
	})
}

func TestNormalizeLeadNumericID(t *testing.T) {
	lead := NormalizeLead(map[string]any{
		"Id":       float64(123),
		"Referrer": float64(99),
	})

	if lead.ID != 123 {
		t.Errorf("ID = %d, want 123", lead.ID)
	}

	// Числовая ссылка реферера превращается в строку
	if lead.ReferrerRef != "99" {
		t.Errorf("ReferrerRef = %q, want \"99\"", lead.ReferrerRef)
	}
}
