// Package dispatch provides a prefix-command dispatcher service: messages
// starting with a configurable prefix ("!cmd args") are matched against
// registered commands and answered through the chat's reply helper. It is
// deliberately not a grammar engine; one prefix, one command word.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"botkit/internal/bot"
	"botkit/internal/domain"
)

// Handler runs one command. It receives the triggering message and the text
// after the command word, and returns the reply text ("" for no reply).
type Handler func(m domain.Message, args string) (string, error)

type command struct {
	name    string
	help    string
	handler Handler
}

// Dispatcher implements domain.Service and domain.Dispatcher.
type Dispatcher struct {
	name     string
	chatName string
	prefix   string
	logger   *slog.Logger
	bot      *bot.Bot
	chat     domain.Chat

	mu       sync.RWMutex
	commands map[string]command
	order    []string
}

// New is the service constructor. Params: "chat" (required, name of the
// chat service to attach to), "prefix" (default "!").
func New(b *bot.Bot, name string, params bot.Params) (domain.Service, error) {
	chatName := params.String("chat")
	if chatName == "" {
		return nil, fmt.Errorf("dispatch service needs a chat param")
	}
	d := &Dispatcher{
		name:     name,
		chatName: chatName,
		prefix:   params.StringOr("prefix", "!"),
		logger:   b.Logger(),
		bot:      b,
		commands: make(map[string]command),
	}
	d.registerDefaults()
	return d, nil
}

func (d *Dispatcher) Name() string { return d.name }

// Init looks up the chat this dispatcher serves and attaches to it.
func (d *Dispatcher) Init(ctx context.Context) error {
	ch, err := d.bot.Chat(d.chatName)
	if err != nil {
		return fmt.Errorf("dispatch %s: %w", d.name, err)
	}
	d.chat = ch
	ch.AttachDispatcher(d)
	return nil
}

// RegisterCommand adds (or replaces) a command by name.
func (d *Dispatcher) RegisterCommand(name, help string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.commands[name]; !exists {
		d.order = append(d.order, name)
	}
	d.commands[name] = command{name: name, help: help, handler: h}
}

// Dispatch interprets the message as a command when it carries the prefix.
// Non-command messages are ignored; unknown commands get a short hint.
func (d *Dispatcher) Dispatch(m domain.Message) error {
	text := strings.TrimSpace(m.Text)
	if !strings.HasPrefix(text, d.prefix) {
		return nil
	}
	word, args, _ := strings.Cut(strings.TrimPrefix(text, d.prefix), " ")
	word = strings.ToLower(strings.TrimSpace(word))
	args = strings.TrimSpace(args)
	if word == "" {
		return nil
	}

	d.mu.RLock()
	cmd, ok := d.commands[word]
	d.mu.RUnlock()

	if !ok {
		return d.reply(m, fmt.Sprintf("unknown command %q, try %shelp", word, d.prefix))
	}

	d.logger.Info("command dispatched", "dispatcher", d.name, "command", word, "from", m.From.Username)
	out, err := cmd.handler(m, args)
	if err != nil {
		d.logger.Warn("command failed", "command", word, "err", err)
		return d.reply(m, fmt.Sprintf("%s failed: %v", word, err))
	}
	if out == "" {
		return nil
	}
	return d.reply(m, out)
}

func (d *Dispatcher) reply(m domain.Message, text string) error {
	res, err := d.chat.SendReply(m, domain.ReplyOverrides{Text: text})
	if err != nil {
		return err
	}
	if res.State == domain.SendDenied {
		d.logger.Info("command reply denied by policy", "reason", res.Reason)
	}
	return nil
}

func (d *Dispatcher) registerDefaults() {
	d.RegisterCommand("ping", "answer with pong", func(domain.Message, string) (string, error) {
		return "pong", nil
	})
	d.RegisterCommand("echo", "repeat the arguments", func(_ domain.Message, args string) (string, error) {
		return args, nil
	})
	d.RegisterCommand("join", "ask the chat to join a group", func(m domain.Message, args string) (string, error) {
		if args == "" {
			return "", fmt.Errorf("usage: join <group>")
		}
		joiner, ok := d.chat.(domain.GroupJoiner)
		if !ok {
			return "", fmt.Errorf("this chat cannot join groups")
		}
		joiner.RequestJoin(args)
		return fmt.Sprintf("requested join of %s", args), nil
	})
	d.RegisterCommand("help", "list commands", func(domain.Message, string) (string, error) {
		d.mu.RLock()
		defer d.mu.RUnlock()
		lines := make([]string, 0, len(d.order))
		for _, name := range d.order {
			c := d.commands[name]
			lines = append(lines, fmt.Sprintf("%s%s - %s", d.prefix, c.name, c.help))
		}
		return strings.Join(lines, "\n"), nil
	})
}
