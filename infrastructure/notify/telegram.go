package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultTelegramAPI is the Bot API base URL.
const DefaultTelegramAPI = "https://api.telegram.org"

// TelegramConfig configures the Telegram channel.
type TelegramConfig struct {
	BotToken string
	ChatID   string
	// APIBase overrides the Bot API URL, for self-hosted API servers.
	APIBase string
	Timeout time.Duration
}

// Telegram sends messages through a Telegram bot.
type Telegram struct {
	config *TelegramConfig
	client *http.Client
}

// NewTelegram creates a Telegram notifier.
func NewTelegram(cfg *TelegramConfig) *Telegram {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultTelegramAPI
	}
	return &Telegram{config: cfg, client: newHTTPClient(cfg.Timeout)}
}

// Name returns "telegram".
func (t *Telegram) Name() string { return "telegram" }

type telegramMessage struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// Push sends the title and body as one message. The body is sent as plain
// text: the report's Markdown dialect is not Telegram's.
func (t *Telegram) Push(ctx context.Context, msg Message) error {
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(t.config.APIBase, "/"), t.config.BotToken)

	body, err := json.Marshal(telegramMessage{
		ChatID: t.config.ChatID,
		Text:   msg.Title + "\n\n" + msg.Body,
	})
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	return postJSON(ctx, t.client, endpoint, body)
}

var _ Notifier = (*Telegram)(nil)
