package platform

import (
	"strconv"
	"strings"
	"time"

	"ib_dashboard/internal/models"
)

// Normalizer переводит сырые записи платформы в канонические типы.
// Платформа присылает сокращённые и непоследовательные имена полей
// (объём сделки то "VU", то "Volume"; прибыль то "PL", то "Profit"),
// поэтому у каждого поля явный упорядоченный список ключей-кандидатов:
// берётся первый присутствующий, иначе нулевое значение. Никаких паник
// на отсутствующих полях.

// fieldAny возвращает первое присутствующее значение из списка ключей
func fieldAny(raw map[string]any, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := raw[k]; ok && v != nil {
			return v, true
		}
	}

	return nil, false
}

// fieldString возвращает первое строковое значение из списка ключей
func fieldString(raw map[string]any, keys ...string) string {
	v, ok := fieldAny(raw, keys...)
	if !ok {
		return ""
	}

	switch s := v.(type) {
	case string:
		return s
	case float64:
		// Числовые id приходят и числом, и строкой
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(s, 10)
	case bool:
		return strconv.FormatBool(s)
	}

	return ""
}

// fieldFloat возвращает первое числовое значение из списка ключей
func fieldFloat(raw map[string]any, keys ...string) float64 {
	v, ok := fieldAny(raw, keys...)
	if !ok {
		return 0
	}

	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}

		return f
	}

	return 0
}

// fieldInt возвращает первое целое значение из списка ключей
func fieldInt(raw map[string]any, keys ...string) int64 {
	return int64(fieldFloat(raw, keys...))
}

// fieldBool возвращает первый булевый флаг; второй результат сообщает, нашёлся ли он
func fieldBool(raw map[string]any, keys ...string) (bool, bool) {
	v, ok := fieldAny(raw, keys...)
	if !ok {
		return false, false
	}

	switch b := v.(type) {
	case bool:
		return b, true
	case float64:
		return b != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "1":
			return true, true
		case "false", "no", "0":
			return false, true
		}
	}

	return false, false
}

// fieldMap возвращает первую вложенную запись из списка ключей
func fieldMap(raw map[string]any, keys ...string) map[string]any {
	v, ok := fieldAny(raw, keys...)
	if !ok {
		return nil
	}

	if m, ok := v.(map[string]any); ok {
		return m
	}

	return nil
}

// ParseTimestamp приводит время к epoch millis.
// Принимает time.Time, epoch в секундах или миллисекундах
// (значения выше 1e12 считаются миллисекундами) и строки дат.
// Второй результат false, если распарсить не удалось.
func ParseTimestamp(v any) (int64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case time.Time:
		return t.UnixMilli(), true
	case float64:
		return epochToMillis(int64(t)), true
	case int64:
		return epochToMillis(t), true
	case int:
		return epochToMillis(int64(t)), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}

		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return epochToMillis(n), true
		}

		for _, layout := range []string{
			time.RFC3339Nano,
			time.RFC3339,
			"2006-01-02 15:04:05",
			"2006-01-02",
		} {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UnixMilli(), true
			}
		}
	}

	return 0, false
}

func epochToMillis(n int64) int64 {
	if n <= 0 {
		return 0
	}

	// Секунды против миллисекунд различаем по величине
	if n > 1e12 {
		return n
	}

	return n * 1000
}

func fieldTime(raw map[string]any, keys ...string) int64 {
	v, ok := fieldAny(raw, keys...)
	if !ok {
		return 0
	}

	ms, _ := ParseTimestamp(v)

	return ms
}

// NormalizeLead переводит сырую запись лида/клиента в каноническую
func NormalizeLead(raw map[string]any) models.Lead {
	lead := models.Lead{
		ID:           fieldInt(raw, "ID", "Id", "UserID"),
		Username:     fieldString(raw, "Login", "Username", "Alias"),
		Name:         fieldString(raw, "Name", "FullName", "NM"),
		Email:        fieldString(raw, "Email", "EM"),
		Phone:        fieldString(raw, "Phone", "PH"),
		CountryName:  fieldString(raw, "Country", "CountryName"),
		CountryCode:  fieldString(raw, "CountryCode", "CC"),
		Company:      fieldString(raw, "Company", "CompanyName"),
		Status:       fieldString(raw, "Status", "ST"),
		Risk:         fieldString(raw, "Risk", "RiskLevel"),
		ReferrerRef:  fieldString(raw, "Referrer", "RefID", "Agent", "AgentAccount"),
		ReferralCode: fieldString(raw, "RefCode", "ReferralCode"),
		Commission:   fieldFloat(raw, "Commission", "CM", "Revenue"),
		CreatedAt:    fieldTime(raw, "CreatedAt", "RegTime", "RegistrationDate"),
	}

	if approved, ok := fieldBool(raw, "Approved", "IsApproved", "KYCApproved"); ok {
		lead.Approved = &approved
	}

	return lead
}

// NormalizeTradingAccount переводит сырой торговый аккаунт в канонический
func NormalizeTradingAccount(raw map[string]any) models.TradingAccount {
	acc := models.TradingAccount{
		ID:         fieldInt(raw, "ID", "AccountID", "Login"),
		Currency:   fieldString(raw, "Currency", "CUR"),
		Group:      fieldString(raw, "Group", "GR"),
		Deposit:    fieldFloat(raw, "NetDeposits", "ND", "Deposit"),
		Equity:     fieldFloat(raw, "Equity", "EQ"),
		Balance:    fieldFloat(raw, "Balance", "BA"),
		FreeMargin: fieldFloat(raw, "FreeMargin", "FM", "AvailableBalance"),
		ClosedPL:   fieldFloat(raw, "ClosedPL", "CPL"),
		OpenPL:     fieldFloat(raw, "OpenPL", "OPL"),
	}

	acc.Type = accountType(raw)

	if active, ok := fieldBool(raw, "Active", "IsActive", "Enabled"); ok {
		acc.Active = active
	}

	if owner := fieldMap(raw, "User", "Owner", "Client"); owner != nil {
		acc.Owner = NormalizeLead(owner)
	}

	return acc
}

// accountType разрешает классификатор real/demo из нескольких вариантов
func accountType(raw map[string]any) string {
	if demo, ok := fieldBool(raw, "IsDemo", "Demo"); ok {
		if demo {
			return models.AccountTypeDemo
		}

		return models.AccountTypeReal
	}

	switch strings.ToLower(fieldString(raw, "Type", "AccountType", "AT")) {
	case "demo", "practice":
		return models.AccountTypeDemo
	case "real", "live":
		return models.AccountTypeReal
	}

	// Неизвестный тип в финансовую агрегацию не попадает
	return models.AccountTypeDemo
}

// NormalizeTrade переводит сырую сделку в каноническую
func NormalizeTrade(raw map[string]any) models.Trade {
	trade := models.Trade{
		Ticket:     fieldInt(raw, "Ticket", "TK", "ID"),
		AccountID:  fieldInt(raw, "AccountID", "AID", "Login"),
		Symbol:     fieldString(raw, "Symbol", "SYM", "Instrument"),
		Volume:     fieldFloat(raw, "VU", "Volume"),
		OpenPrice:  fieldFloat(raw, "OP", "OpenPrice"),
		ClosePrice: fieldFloat(raw, "CP", "ClosePrice"),
		OpenTime:   fieldTime(raw, "OT", "OpenTime"),
		CloseTime:  fieldTime(raw, "CT", "CloseTime"),
		Profit:     fieldFloat(raw, "PL", "Profit"),
		Commission: fieldFloat(raw, "CM", "Commission"),
	}

	trade.Side = tradeSide(raw)
	trade.Closed = trade.CloseTime > 0

	return trade
}

// tradeSide разрешает сторону сделки: числом (0 buy, 1 sell) или строкой
func tradeSide(raw map[string]any) string {
	v, ok := fieldAny(raw, "Side", "SD", "Cmd")
	if !ok {
		return ""
	}

	switch s := v.(type) {
	case float64:
		if int(s) == 1 {
			return models.SideSell
		}

		return models.SideBuy
	case string:
		switch strings.ToLower(s) {
		case "sell", "short", "1":
			return models.SideSell
		case "buy", "long", "0":
			return models.SideBuy
		}
	}

	return ""
}

// NormalizeTransaction переводит сырую транзакцию в каноническую
func NormalizeTransaction(raw map[string]any) models.Transaction {
	return models.Transaction{
		ID:        fieldInt(raw, "ID", "TxID"),
		AccountID: fieldInt(raw, "AccountID", "AID", "Login"),
		Side:      int(fieldInt(raw, "Side", "SD", "Type")),
		Amount:    fieldFloat(raw, "Amount", "AM"),
		Time:      fieldTime(raw, "Time", "Date", "DT"),
		Status:    fieldString(raw, "Status", "State"),
	}
}
