package services

import (
	"botkit/internal/bot"
	"botkit/internal/dispatch"
	"botkit/internal/roster"
	"botkit/internal/transport"
)

// RegisterBuiltins installs every built-in constructor into the global
// namespaces. Short names land in bot.Builtins for plain references in
// config; the same constructors are also reachable under their package-
// qualified names via a leading "=".
func RegisterBuiltins() {
	builtins := map[string]bot.Constructor{
		"telegram":   transport.NewTelegram,
		"discord":    transport.NewDiscord,
		"slack":      transport.NewSlack,
		"websocket":  transport.NewWebSocket,
		"dispatch":   dispatch.New,
		"log":        NewLogConsumer,
		"ratelimit":  NewRateLimit,
		"quiethours": NewQuietHours,
		"maxlength":  NewMaxLength,
		"roster":     roster.New,
	}
	for name, ctor := range builtins {
		bot.Builtins.Define(name, ctor)
	}

	qualified := map[string]bot.Constructor{
		"botkit/internal/transport.Telegram":   transport.NewTelegram,
		"botkit/internal/transport.Discord":    transport.NewDiscord,
		"botkit/internal/transport.Slack":      transport.NewSlack,
		"botkit/internal/transport.WebSocket":  transport.NewWebSocket,
		"botkit/internal/dispatch.Dispatcher":  dispatch.New,
		"botkit/internal/services.LogConsumer": NewLogConsumer,
		"botkit/internal/services.RateLimit":   NewRateLimit,
		"botkit/internal/services.QuietHours":  NewQuietHours,
		"botkit/internal/services.MaxLength":   NewMaxLength,
		"botkit/internal/roster.Store":         roster.New,
	}
	for name, ctor := range qualified {
		bot.Qualified.Define(name, ctor)
	}
}
