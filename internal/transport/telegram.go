package transport

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"botkit/internal/bot"
	"botkit/internal/chat"
	"botkit/internal/domain"
)

const (
	telegramMaxMsgLen      = 4000
	telegramMaxSendRetries = 3
	telegramPollTimeout    = 30
)

// Telegram is the "telegram" chat service. It polls the Bot API for updates
// and delivers outbound messages by numeric chat ID, so message targets on
// this transport are chat IDs rendered as decimal strings. Params: "token"
// (required), "allow_from" (optional user ID allow list), "parse_mode"
// (default Markdown).
type Telegram struct {
	*chat.Chat

	token     string
	allowFrom []int64
	parseMode string

	api    *tgbotapi.BotAPI
	cancel context.CancelFunc
	done   chan struct{}
}

func NewTelegram(b *bot.Bot, name string, params bot.Params) (domain.Service, error) {
	token := params.String("token")
	if token == "" {
		return nil, fmt.Errorf("telegram service needs a token param")
	}
	var allowed []int64
	for _, s := range params.StringSlice("allow_from") {
		if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			allowed = append(allowed, id)
		}
	}
	t := &Telegram{
		token:     token,
		allowFrom: allowed,
		parseMode: params.StringOr("parse_mode", tgbotapi.ModeMarkdown),
		done:      make(chan struct{}),
	}
	t.Chat = chat.New(chat.Config{
		Name:      name,
		Transport: t,
		Logger:    b.Logger().With("chat", name),
	})
	return t, nil
}

func (t *Telegram) Init(ctx context.Context) error {
	api, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.api = api
	t.Logger().Info("telegram bot connected",
		"username", api.Self.UserName,
		"id", api.Self.ID,
	)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = telegramPollTimeout
	updates := api.GetUpdatesChan(u)

	loopCtx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	go t.poll(loopCtx, updates)

	t.MarkReady()
	return nil
}

func (t *Telegram) poll(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	defer close(t.done)
	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			t.handleUpdate(update)
		}
	}
}

func (t *Telegram) handleUpdate(update tgbotapi.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Chat == nil {
		return
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if !t.isAllowed(userID) {
		t.Logger().Warn("unauthorized telegram user",
			"user_id", userID,
			"username", update.Message.From.UserName,
		)
		return
	}

	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		return
	}

	group := ""
	if update.Message.Chat.IsGroup() || update.Message.Chat.IsSuperGroup() {
		group = strconv.FormatInt(chatID, 10)
	}

	t.ResendMessage(domain.Message{
		Chat: t,
		From: domain.Identity{
			Username: strconv.FormatInt(userID, 10),
			Nickname: update.Message.From.UserName,
		},
		Group: group,
		Text:  text,
	})
}

func (t *Telegram) isAllowed(userID int64) bool {
	if len(t.allowFrom) == 0 {
		return true
	}
	for _, id := range t.allowFrom {
		if id == userID {
			return true
		}
	}
	return false
}

// Deliver sends to the group chat ID or, for direct messages, to the user's
// chat ID. Telegram private chats share the user's ID, so a sender's
// username doubles as the reply target.
func (t *Telegram) Deliver(p domain.SendParams) error {
	target := p.Group
	if target == "" {
		target = p.To
	}
	id, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram target %q is not a chat ID: %w", target, err)
	}
	for _, chunk := range splitMessage(p.Text, telegramMaxMsgLen) {
		if err := t.sendChunk(id, chunk); err != nil {
			return err
		}
	}
	return nil
}

// sendChunk sends one message chunk with retry and rate limit handling:
// parse mode first, plain text on parse errors, backoff on 429.
func (t *Telegram) sendChunk(chatID int64, text string) error {
	var lastErr error
	for attempt := 0; attempt <= telegramMaxSendRetries; attempt++ {
		msg := tgbotapi.NewMessage(chatID, text)
		if attempt == 0 && t.parseMode != "" {
			msg.ParseMode = t.parseMode
		}

		_, err := t.api.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		errStr := err.Error()

		if strings.Contains(errStr, "Too Many Requests") || strings.Contains(errStr, "429") {
			retryAfter := time.Duration(attempt+1) * 3 * time.Second
			t.Logger().Warn("telegram rate limited, backing off",
				"retry_after", retryAfter, "attempt", attempt+1,
			)
			time.Sleep(retryAfter)
			continue
		}

		if attempt == 0 && msg.ParseMode != "" && strings.Contains(errStr, "can't parse entities") {
			t.Logger().Warn("telegram parse error, retrying as plain text", "err", err)
			continue
		}

		if attempt < telegramMaxSendRetries {
			backoff := time.Duration(attempt+1) * time.Second
			t.Logger().Warn("telegram send error, retrying", "err", err, "backoff", backoff)
			time.Sleep(backoff)
		}
	}
	return fmt.Errorf("telegram send: %w", lastErr)
}

// Join always fails: Telegram bots cannot add themselves to groups, a group
// member has to invite the bot. Requested groups stay queued on the gate.
func (t *Telegram) Join(group string, id domain.Identity) error {
	return fmt.Errorf("telegram bots must be invited to groups, cannot join %q", group)
}

func (t *Telegram) Shutdown() error {
	if t.cancel != nil {
		t.cancel()
		<-t.done
	}
	return t.Chat.Shutdown()
}
