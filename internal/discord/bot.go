package discord

import (
	"context"
	"fmt"

	"ctfd-bot/internal/config"
	"ctfd-bot/internal/constants"
	"ctfd-bot/internal/render"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const defaultBotName = "CTFd Bot"

// CTFNamer provides the event name used in the greeting.
type CTFNamer interface {
	CTFName(ctx context.Context) (string, error)
}

func NewSession(cfg *config.Config) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent
	return session, nil
}

type Bot struct {
	session     *discordgo.Session
	channel     *Channel
	commands    *Commands
	names       CTFNamer
	channelName string
	prefix      string
	logger      zerolog.Logger
}

func NewBot(cfg *config.Config, session *discordgo.Session, channel *Channel, commands *Commands, names CTFNamer, logger zerolog.Logger) *Bot {
	return &Bot{
		session:     session,
		channel:     channel,
		commands:    commands,
		names:       names,
		channelName: cfg.BotChannel,
		prefix:      cfg.CommandPrefix,
		logger:      logger.With().Str("component", "bot").Logger(),
	}
}

func (b *Bot) Open() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onGuildCreate)
	b.session.AddHandler(b.onMessageCreate)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	return nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info().Str("user", r.User.String()).Int("guilds", len(r.Guilds)).Msg("connected to discord")

	for _, g := range r.Guilds {
		channels, err := s.GuildChannels(g.ID)
		if err != nil {
			b.logger.Warn().Err(err).Str("guild_id", g.ID).Msg("failed to list guild channels")
			continue
		}
		if b.resolve(g.ID, channels) {
			return
		}
	}
	if _, _, ok := b.channel.Get(); !ok {
		b.logger.Warn().Str("channel", b.channelName).Msg("bot channel not found, waiting for guilds")
	}
}

// onGuildCreate catches guilds that were unavailable when Ready fired.
func (b *Bot) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	if _, _, ok := b.channel.Get(); ok {
		return
	}
	b.resolve(g.ID, g.Channels)
}

func (b *Bot) resolve(guildID string, channels []*discordgo.Channel) bool {
	for _, c := range channels {
		if c.Type != discordgo.ChannelTypeGuildText || c.Name != b.channelName {
			continue
		}
		if b.channel.Set(c.ID, guildID) {
			b.logger.Info().Str("channel_id", c.ID).Str("guild_id", guildID).Msg("bot channel resolved")
			b.greet(c.ID)
		}
		return true
	}
	return false
}

func (b *Bot) greet(channelID string) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.CommandTimeout)
	defer cancel()

	name, err := b.names.CTFName(ctx)
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to read ctf name")
		name = defaultBotName
	}
	if err := send(ctx, b.session, channelID, render.Greeting(name, b.prefix)); err != nil {
		b.logger.Error().Err(err).Msg("failed to send greeting")
	}
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	channelID, _, ok := b.channel.Get()
	if !ok || m.ChannelID != channelID {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.CommandTimeout)
	defer cancel()

	replies, err := b.commands.Handle(ctx, m.Author.String(), m.Content)
	if err != nil {
		b.logger.Error().Err(err).Str("author", m.Author.String()).Str("content", m.Content).Msg("command failed")
		replies = []render.Reply{render.Error("Something went wrong, try again later.")}
	}
	for _, r := range replies {
		if err := send(ctx, s, channelID, r); err != nil {
			b.logger.Error().Err(err).Str("title", r.Title).Msg("failed to send reply")
			return
		}
	}
}
