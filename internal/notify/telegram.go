package notify

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// telegramSendInterval keeps a chat under Telegram's per-chat flood limit.
const telegramSendInterval = 2 * time.Second

// TelegramSender posts to one Telegram chat through the Bot API.
type TelegramSender struct {
	bot     *tgbotapi.BotAPI
	chatID  int64
	limiter *rate.Limiter
}

// NewTelegramSender connects the bot (which calls getMe) and targets chatID.
func NewTelegramSender(token, chatID string) (*TelegramSender, error) {
	return newTelegramSender(token, chatID, tgbotapi.APIEndpoint, &http.Client{Timeout: 10 * time.Second})
}

func newTelegramSender(token, chatID, endpoint string, client *http.Client) (*TelegramSender, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram: invalid chat id %q: %w", chatID, err)
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect bot: %w", err)
	}
	bot.Debug = false

	return &TelegramSender{
		bot:     bot,
		chatID:  id,
		limiter: rate.NewLimiter(rate.Every(telegramSendInterval), 3),
	}, nil
}

// Send posts the message with a bold Markdown title.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram: wait: %w", err)
	}

	msg := tgbotapi.NewMessage(t.chatID, fmt.Sprintf("*%s*\n%s", title, message))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram: send message: %w", err)
	}
	return nil
}

// Name returns "telegram".
func (t *TelegramSender) Name() string {
	return "telegram"
}
