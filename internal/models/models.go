package models

// Lead представляет канонический профиль пользователя платформы (лид/клиент).
// Все сырые сокращённые имена полей разрешаются в normalizer,
// дальше этой границы они не утекают.
type Lead struct {
	ID           int64   `json:"id"`
	Username     string  `json:"username"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone"`
	CountryName  string  `json:"country_name"`
	CountryCode  string  `json:"country_code"`
	Company      string  `json:"company"`
	Approved     *bool   `json:"approved,omitempty"` // nil значит платформа не прислала явный флаг
	Status       string  `json:"status"`
	Risk         string  `json:"risk"`
	ReferrerRef  string  `json:"referrer_ref"` // сырая ссылка на реферера (id/username/код)
	ReferralCode string  `json:"referral_code"`
	Commission   float64 `json:"commission"` // базовая комиссия за текущий период
	CreatedAt    int64   `json:"created_at"` // epoch millis
}

// Типы торговых аккаунтов
const (
	AccountTypeReal = "real"
	AccountTypeDemo = "demo"
)

// TradingAccount представляет канонический торговый аккаунт.
// Поля "volume traded" у аккаунта нет: лоты считаются
// только по закрытым сделкам (см. aggregate).
type TradingAccount struct {
	ID         int64   `json:"id"`
	Type       string  `json:"type"` // real | demo
	Active     bool    `json:"active"`
	Currency   string  `json:"currency"`
	Group      string  `json:"group"`
	Deposit    float64 `json:"deposit"` // net deposits
	Equity     float64 `json:"equity"`
	Balance    float64 `json:"balance"`
	FreeMargin float64 `json:"free_margin"`
	ClosedPL   float64 `json:"closed_pl"`
	OpenPL     float64 `json:"open_pl"`
	Owner      Lead    `json:"owner"` // вложенная запись владельца
}

// IsReal сообщает, учитывается ли аккаунт в финансовой агрегации
func (a TradingAccount) IsReal() bool {
	return a.Type == AccountTypeReal
}

// Стороны сделки
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Trade представляет каноническую сделку
type Trade struct {
	Ticket     int64   `json:"ticket"`
	AccountID  int64   `json:"account_id"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"` // buy | sell
	Volume     float64 `json:"volume"`
	OpenPrice  float64 `json:"open_price"`
	ClosePrice float64 `json:"close_price"`
	OpenTime   int64   `json:"open_time"`  // epoch millis
	CloseTime  int64   `json:"close_time"` // epoch millis, 0 если ещё открыта
	Profit     float64 `json:"profit"`
	Commission float64 `json:"commission"`
	Closed     bool    `json:"closed"`
}

// Стороны транзакции (как приходят с платформы)
const (
	TxDeposit    = 1
	TxWithdrawal = 2
	TxAdjustment = 3
)

// Transaction представляет каноническую транзакцию (депозит/вывод/корректировка)
type Transaction struct {
	ID        int64   `json:"id"`
	AccountID int64   `json:"account_id"`
	Side      int     `json:"side"` // 1 deposit, 2 withdrawal, 3 adjustment
	Amount    float64 `json:"amount"`
	Time      int64   `json:"time"` // epoch millis
	Status    string  `json:"status"`
}

// Статусы KYC
const (
	KYCApproved = "Approved"
	KYCPending  = "Pending"
)

// Источники KYC решения (для аудита)
const (
	KYCSourceUserFlag   = "user_flag"   // явный флаг на уровне пользователя
	KYCSourceActiveReal = "active_real" // активный реальный аккаунт
	KYCSourceDefault    = "default"     // ничего не известно, остаётся Pending
)

// Client представляет агрегированного клиента партнёра, одного на
// пользователя платформы.
// Живёт всё время жизни сессии.
type Client struct {
	ID           int64   `json:"id"`
	Key          string  `json:"-"` // ключ группировки (id/email/alias/uuid)
	Username     string  `json:"username"`
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone"`
	Country      string  `json:"country"`
	KYCStatus    string  `json:"kyc_status"` // Approved | Pending
	KYCSource    string  `json:"kyc_source"`
	Approved     bool    `json:"approved"`
	Deposit      float64 `json:"deposit"`
	Equity       float64 `json:"equity"`
	Balance      float64 `json:"balance"`
	FreeMargin   float64 `json:"free_margin"`
	ClosedPL     float64 `json:"closed_pl"`
	OpenPL       float64 `json:"open_pl"`
	Lots         float64 `json:"lots"` // только из закрытых сделок
	Commission   float64 `json:"commission"`
	Status       string  `json:"status"`
	Risk         string  `json:"risk"`
	ReferrerRef  string  `json:"referrer_ref"`
	ReferralCode string  `json:"referral_code"`

	HasRealAccounts bool    `json:"has_real_accounts"`
	RealAccountIDs  []int64 `json:"real_account_ids"`

	// Сырые аккаунты для drill-down на странице клиента
	Accounts []TradingAccount `json:"accounts,omitempty"`
}

// ReferralNode представляет узел трёхуровневого реферального дерева.
// Контактные поля заполнены только на первом уровне.
type ReferralNode struct {
	ClientID  int64  `json:"client_id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"` // пусто на tier >= 2
	Phone     string `json:"phone,omitempty"` // пусто на tier >= 2
	KYCStatus string `json:"kyc_status"`

	Deposit float64 `json:"deposit"`
	Volume  float64 `json:"volume"`
	Revenue float64 `json:"revenue"`

	Tier        int             `json:"tier"` // 1..3
	DirectCount int             `json:"direct_count"`
	Qualified   bool            `json:"qualified"`
	Children    []*ReferralNode `json:"children,omitempty"`
}
