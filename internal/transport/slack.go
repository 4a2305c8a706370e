package transport

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"botkit/internal/bot"
	"botkit/internal/chat"
	"botkit/internal/domain"
)

const slackMaxMsgLen = 4000

// Slack is the "slack" chat service, connected via Socket Mode. Channel IDs
// act as groups and user IDs as direct-message targets. Slack is the one
// transport here whose bot can join public channels itself, so the join gate
// actually drains through the API. Params: "bot_token" and "app_token"
// (both required).
type Slack struct {
	*chat.Chat

	botToken string
	appToken string

	client *slack.Client
	socket *socketmode.Client
	botUID string
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSlack(b *bot.Bot, name string, params bot.Params) (domain.Service, error) {
	botToken := params.String("bot_token")
	appToken := params.String("app_token")
	if botToken == "" || appToken == "" {
		return nil, fmt.Errorf("slack service needs bot_token and app_token params")
	}
	s := &Slack{
		botToken: botToken,
		appToken: appToken,
		done:     make(chan struct{}),
	}
	s.Chat = chat.New(chat.Config{
		Name:      name,
		Transport: s,
		Logger:    b.Logger().With("chat", name),
	})
	return s, nil
}

func (s *Slack) Init(ctx context.Context) error {
	api := slack.New(
		s.botToken,
		slack.OptionAppLevelToken(s.appToken),
	)
	s.client = api

	authResp, err := api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack auth: %w", err)
	}
	s.botUID = authResp.UserID
	s.Logger().Info("slack bot connected", "user", authResp.User, "user_id", authResp.UserID)

	s.socket = socketmode.New(api)

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	go s.handleEvents()
	go func() {
		defer close(s.done)
		if err := s.socket.RunContext(loopCtx); err != nil && loopCtx.Err() == nil {
			s.Logger().Error("slack socket mode stopped", "err", err)
		}
	}()
	return nil
}

func (s *Slack) handleEvents() {
	for evt := range s.socket.Events {
		switch evt.Type {
		case socketmode.EventTypeConnected:
			// The gate is one-way, so reconnects within a session are no-ops.
			s.MarkReady()

		case socketmode.EventTypeEventsAPI:
			eventsAPIEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok {
				continue
			}
			s.socket.Ack(*evt.Request)
			s.handleEventsAPI(eventsAPIEvent)

		default:
			// Acknowledge everything else to keep Socket Mode connected.
			if evt.Request != nil {
				s.socket.Ack(*evt.Request)
			}
		}
	}
}

func (s *Slack) handleEventsAPI(event slackevents.EventsAPIEvent) {
	if event.Type != slackevents.CallbackEvent {
		return
	}
	switch ev := event.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		// Ignore our own messages and message_changed subtypes.
		if ev.User == s.botUID || ev.User == "" || ev.SubType != "" {
			return
		}
		group := ev.Channel
		if ev.ChannelType == "im" {
			group = ""
		}
		s.ResendMessage(domain.Message{
			Chat:  s,
			From:  domain.Identity{Username: ev.User},
			Group: group,
			Text:  ev.Text,
		})

	case *slackevents.AppMentionEvent:
		// Strip the leading mention so consumers see the bare text.
		content := ev.Text
		if idx := strings.Index(content, ">"); idx >= 0 {
			content = strings.TrimSpace(content[idx+1:])
		}
		s.ResendMessage(domain.Message{
			Chat:  s,
			From:  domain.Identity{Username: ev.User},
			Group: ev.Channel,
			Text:  content,
		})
	}
}

func (s *Slack) Deliver(p domain.SendParams) error {
	channelID := p.Group
	if channelID == "" {
		ch, _, _, err := s.client.OpenConversation(&slack.OpenConversationParameters{
			Users: []string{p.To},
		})
		if err != nil {
			return fmt.Errorf("slack open DM with %s: %w", p.To, err)
		}
		channelID = ch.ID
	}
	for _, chunk := range splitMessage(p.Text, slackMaxMsgLen) {
		_, _, err := s.client.PostMessage(channelID, slack.MsgOptionText(chunk, false))
		if err != nil {
			return fmt.Errorf("slack send to %s: %w", channelID, err)
		}
	}
	return nil
}

func (s *Slack) Join(group string, id domain.Identity) error {
	if _, _, _, err := s.client.JoinConversation(group); err != nil {
		return fmt.Errorf("slack join %s: %w", group, err)
	}
	return nil
}

func (s *Slack) Shutdown() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	return s.Chat.Shutdown()
}
