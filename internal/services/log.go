// Package services holds the built-in service catalogue: small consumers
// and policy services, plus the registration of every built-in constructor
// into the bot's namespaces.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"botkit/internal/bot"
	"botkit/internal/domain"
)

// LogConsumer logs every inbound message of one chat. Params: "chat"
// (required).
type LogConsumer struct {
	name     string
	chatName string
	bot      *bot.Bot
	logger   *slog.Logger
}

func NewLogConsumer(b *bot.Bot, name string, params bot.Params) (domain.Service, error) {
	chatName := params.String("chat")
	if chatName == "" {
		return nil, fmt.Errorf("log service needs a chat param")
	}
	return &LogConsumer{name: name, chatName: chatName, bot: b, logger: b.Logger()}, nil
}

func (l *LogConsumer) Name() string { return l.name }

func (l *LogConsumer) Init(context.Context) error {
	ch, err := l.bot.Chat(l.chatName)
	if err != nil {
		return fmt.Errorf("log %s: %w", l.name, err)
	}
	ch.RegisterConsumer(l)
	return nil
}

func (l *LogConsumer) ReceiveMessage(m domain.Message) error {
	l.logger.Info("message",
		"chat", l.chatName,
		"from", m.From.Username,
		"group", m.Group,
		"direct", m.IsDirect(),
		"text_len", len(m.Text),
	)
	return nil
}
