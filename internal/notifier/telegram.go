package notifier

import (
	"context"
	"errors"
	"strings"

	tele "gopkg.in/telebot.v4"
)

// TelegramConfig configures the Telegram channel.
type TelegramConfig struct {
	Token    string
	ChatID   int64
	ThreadID int
	// APIURL overrides the Bot API endpoint (tests, local bot API server).
	APIURL string
}

// Telegram sends announcements to a chat (optionally a forum topic).
type Telegram struct {
	bot    *tele.Bot
	chat   *tele.Chat
	thread int
}

// NewTelegram builds the channel. The bot is created offline: no getMe call
// is made until the first send, so a slow Bot API does not delay startup.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is empty")
	}
	b, err := tele.NewBot(tele.Settings{
		URL:     strings.TrimSpace(cfg.APIURL),
		Token:   cfg.Token,
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: b, chat: &tele.Chat{ID: cfg.ChatID}, thread: cfg.ThreadID}, nil
}

func (t *Telegram) Name() string { return "telegram" }

// Send ignores ctx cancellation once the request is in flight; telebot has no
// context-aware send.
func (t *Telegram) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.bot.Send(t.chat, RenderHTML(m), &tele.SendOptions{
		ParseMode:             tele.ModeHTML,
		DisableWebPagePreview: true,
		ThreadID:              t.thread,
	})
	return err
}
