package notify

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramAPI is the part of *tgbotapi.BotAPI the sender needs.
type TelegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts notifications to a single chat.
type Telegram struct {
	api    TelegramAPI
	chatID int64
}

// NewTelegram authorizes the bot token and targets chatID.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	log.Printf("Authorized on account %s", api.Self.UserName)
	return NewTelegramWithAPI(api, chatID), nil
}

func NewTelegramWithAPI(api TelegramAPI, chatID int64) *Telegram {
	return &Telegram{api: api, chatID: chatID}
}

func (t *Telegram) Name() string { return "telegram" }

func (t *Telegram) Send(ctx context.Context, n Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, formatMessage(n))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func formatMessage(n Notification) string {
	var sb strings.Builder
	if n.Title != "" {
		sb.WriteString("<b>")
		sb.WriteString(html.EscapeString(n.Title))
		sb.WriteString("</b>\n")
	}
	sb.WriteString(html.EscapeString(n.Body))
	return strings.TrimSpace(sb.String())
}
