package discord

import (
	"context"

	"ctfd-bot/internal/domain"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

const memberSearchLimit = 10

// GuildMentioner looks authors up among the members of the bot channel's guild.
type GuildMentioner struct {
	messenger Messenger
	channel   *Channel
	logger    zerolog.Logger
}

func NewGuildMentioner(messenger Messenger, channel *Channel, logger zerolog.Logger) *GuildMentioner {
	return &GuildMentioner{messenger: messenger, channel: channel, logger: logger}
}

// Mentions returns one mention per author, falling back to the plain handle
// when no member matches.
func (g *GuildMentioner) Mentions(ctx context.Context, authors []domain.Author) []string {
	_, guildID, ok := g.channel.Get()

	mentions := make([]string, len(authors))
	for i, a := range authors {
		mentions[i] = a.String()
		if !ok {
			continue
		}
		members, err := g.messenger.GuildMembersSearch(guildID, a.Name, memberSearchLimit, discordgo.WithContext(ctx))
		if err != nil {
			g.logger.Warn().Err(err).Str("author", a.String()).Msg("failed to search guild members")
			continue
		}
		if m := matchMember(members, a); m != nil {
			mentions[i] = m.User.Mention()
		}
	}
	return mentions
}

// matchMember prefers an exact name#discriminator match, then a migrated
// account (discriminator "0") with the same username.
func matchMember(members []*discordgo.Member, a domain.Author) *discordgo.Member {
	var migrated *discordgo.Member
	for _, m := range members {
		if m.User == nil || m.User.Username != a.Name {
			continue
		}
		if m.User.Discriminator == a.Discriminator {
			return m
		}
		if m.User.Discriminator == "0" && migrated == nil {
			migrated = m
		}
	}
	return migrated
}
