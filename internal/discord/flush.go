package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ctfd-bot/internal/constants"
	"ctfd-bot/internal/render"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// ChannelFlusher clears the bot channel, keeping solve announcements.
type ChannelFlusher struct {
	messenger Messenger
	channel   *Channel
	prefix    string
	logger    zerolog.Logger
}

func NewChannelFlusher(messenger Messenger, channel *Channel, prefix string, logger zerolog.Logger) *ChannelFlusher {
	return &ChannelFlusher{messenger: messenger, channel: channel, prefix: prefix, logger: logger}
}

// Flush announces the flush and deletes the recent messages that are
// neither solve announcements nor fresh flush notices.
func (f *ChannelFlusher) Flush(ctx context.Context, author string) (int, error) {
	id, _, ok := f.channel.Get()
	if !ok {
		return 0, errChannelNotReady
	}

	notice := render.Flush(fmt.Sprintf("%s just launched %sflush command.", author, f.prefix))
	if err := send(ctx, f.messenger, id, notice); err != nil {
		return 0, err
	}

	messages, err := f.messenger.ChannelMessages(id, constants.FlushHistoryLimit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("failed to fetch channel history: %w", err)
	}
	if len(messages) == 0 {
		return 0, nil
	}

	// history comes newest first
	reference := messages[0].Timestamp
	deleted := 0
	for _, m := range messages {
		if keepOnFlush(m, reference) {
			continue
		}
		if err := f.messenger.ChannelMessageDelete(id, m.ID, discordgo.WithContext(ctx)); err != nil {
			return deleted, fmt.Errorf("failed to delete message %s: %w", m.ID, err)
		}
		deleted++
	}

	f.logger.Info().Str("author", author).Int("deleted", deleted).Msg("channel flushed")
	return deleted, nil
}

func keepOnFlush(m *discordgo.Message, reference time.Time) bool {
	if len(m.Embeds) == 0 || len(m.Embeds[0].Fields) == 0 {
		return false
	}
	title := m.Embeds[0].Fields[0].Name
	if strings.Contains(title, render.NewSolveTitle) {
		return true
	}
	return strings.Contains(title, render.FlushTitle) && reference.Sub(m.Timestamp) < constants.FlushNoticeKeepTime
}
