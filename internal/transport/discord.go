package transport

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"botkit/internal/bot"
	"botkit/internal/chat"
	"botkit/internal/domain"
)

const discordMaxMsgLen = 2000

// Discord is the "discord" chat service. Guild channel IDs act as groups and
// user IDs act as direct-message targets; direct delivery opens the DM
// channel on demand. Params: "token" (required), "guild_id" (optional guild
// filter).
type Discord struct {
	*chat.Chat

	token   string
	guildID string
	session *discordgo.Session
}

func NewDiscord(b *bot.Bot, name string, params bot.Params) (domain.Service, error) {
	token := params.String("token")
	if token == "" {
		return nil, fmt.Errorf("discord service needs a token param")
	}
	d := &Discord{
		token:   token,
		guildID: params.String("guild_id"),
	}
	d.Chat = chat.New(chat.Config{
		Name:      name,
		Transport: d,
		Logger:    b.Logger().With("chat", name),
	})
	return d, nil
}

func (d *Discord) Init(ctx context.Context) error {
	session, err := discordgo.New("Bot " + d.token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent
	d.session = session

	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author.ID == s.State.User.ID {
			return
		}
		if d.guildID != "" && m.GuildID != "" && m.GuildID != d.guildID {
			return
		}

		group := ""
		if m.GuildID != "" {
			group = m.ChannelID
		}
		d.ResendMessage(domain.Message{
			Chat: d,
			From: domain.Identity{
				Username: m.Author.ID,
				Nickname: m.Author.Username,
			},
			Group: group,
			Text:  m.Content,
		})
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord connect: %w", err)
	}
	d.Logger().Info("discord bot connected", "user", session.State.User.Username)

	d.MarkReady()
	return nil
}

func (d *Discord) Deliver(p domain.SendParams) error {
	channelID := p.Group
	if channelID == "" {
		dm, err := d.session.UserChannelCreate(p.To)
		if err != nil {
			return fmt.Errorf("discord open DM with %s: %w", p.To, err)
		}
		channelID = dm.ID
	}
	for _, chunk := range splitMessage(p.Text, discordMaxMsgLen) {
		if _, err := d.session.ChannelMessageSend(channelID, chunk); err != nil {
			return fmt.Errorf("discord send to %s: %w", channelID, err)
		}
	}
	return nil
}

// Join always fails: Discord bots enter guilds through OAuth invites, not on
// their own. Requested groups stay queued on the gate.
func (d *Discord) Join(group string, id domain.Identity) error {
	return fmt.Errorf("discord bots must be invited to guilds, cannot join %q", group)
}

func (d *Discord) Shutdown() error {
	if d.session != nil {
		if err := d.session.Close(); err != nil {
			d.Logger().Error("discord disconnect failed", "err", err)
		}
	}
	return d.Chat.Shutdown()
}
