package discord

import (
	"context"
	"fmt"
	"sync"

	"ctfd-bot/internal/render"

	"github.com/bwmarrin/discordgo"
)

// Messenger is the part of a discordgo session the bot talks through.
type Messenger interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessages(channelID string, limit int, beforeID, afterID, aroundID string, options ...discordgo.RequestOption) ([]*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	GuildMembersSearch(guildID, query string, limit int, options ...discordgo.RequestOption) ([]*discordgo.Member, error)
}

// Channel holds the bot channel once it has been found by name.
type Channel struct {
	mu      sync.RWMutex
	id      string
	guildID string
}

func NewChannel() *Channel {
	return &Channel{}
}

// Set records the channel and reports whether it was not known before.
func (c *Channel) Set(id, guildID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	first := c.id == ""
	c.id, c.guildID = id, guildID
	return first
}

func (c *Channel) Get() (id, guildID string, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id, c.guildID, c.id != ""
}

func embed(r render.Reply, chunk string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:  r.Color,
		Fields: []*discordgo.MessageEmbedField{{Name: r.Title, Value: chunk}},
	}
}

// send posts a reply as one embed per chunk, or as plain messages when it
// has no title.
func send(ctx context.Context, m Messenger, channelID string, r render.Reply) error {
	for _, chunk := range r.Chunks() {
		var err error
		if r.Title == "" {
			_, err = m.ChannelMessageSend(channelID, chunk, discordgo.WithContext(ctx))
		} else {
			_, err = m.ChannelMessageSendEmbed(channelID, embed(r, chunk), discordgo.WithContext(ctx))
		}
		if err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
	}
	return nil
}
