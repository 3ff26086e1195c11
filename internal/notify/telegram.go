package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"coinhunter/pkg/logger"
)

const telegramMessageLimit = 4096

// Telegram delivers notifications to a Telegram chat. Sends run in their
// own goroutine; failures are logged and dropped.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

// Notify sends the message asynchronously, prefixed by severity.
func (t *Telegram) Notify(message, severity string) {
	text := formatMessage(message, severity)
	go func() {
		if _, err := t.bot.Send(tgbotapi.NewMessage(t.chatID, text)); err != nil {
			logger.Warn("telegram delivery failed",
				zap.String("severity", severity), zap.Error(err))
		}
	}()
}

func formatMessage(message, severity string) string {
	var prefix string
	switch severity {
	case SeverityCritical:
		prefix = "[CRITICAL] "
	case SeverityWarning:
		prefix = "[WARNING] "
	default:
		prefix = "[INFO] "
	}
	text := prefix + message
	if len(text) > telegramMessageLimit {
		text = text[:telegramMessageLimit-3] + "..."
	}
	return text
}
