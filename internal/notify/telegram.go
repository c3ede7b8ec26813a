package notify

import (
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Notifier шлёт оператору уведомления в Telegram.
// Без токена работает как no-op, уведомления просто выключены.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

// New создает новый Notifier. Пустой токен отключает уведомления.
func New(token string, chatID int64, logger *slog.Logger) (*Notifier, error) {
	if token == "" {
		logger.Info("Telegram notifications disabled")

		return &Notifier{logger: logger}, nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}

	logger.Info("✅ Telegram notifier authorized", slog.String("username", bot.Self.UserName))

	return &Notifier{
		bot:    bot,
		chatID: chatID,
		logger: logger,
	}, nil
}

// Enabled сообщает, активны ли уведомления
func (n *Notifier) Enabled() bool {
	return n.bot != nil
}

// PayoutRequested уведомляет о новой заявке на выплату
func (n *Notifier) PayoutRequested(username string, amount float64) {
	n.send(fmt.Sprintf("💸 New payout request\nPartner: %s\nAmount: $%.2f", username, amount))
}

// ConnectionLost уведомляет о терминальной потере сессии платформы
func (n *Notifier) ConnectionLost(err error) {
	n.send(fmt.Sprintf("❌ Platform session lost: %v", err))
}

func (n *Notifier) send(text string) {
	if n.bot == nil {
		return
	}

	msg := tgbotapi.NewMessage(n.chatID, text)

	if _, err := n.bot.Send(msg); err != nil {
		n.logger.Error("Failed to send Telegram notification", slog.Any("error", err))
	}
}
