package discord

import (
	"context"
	"errors"
	"fmt"

	"ctfd-bot/internal/api"
	"ctfd-bot/internal/render"
	"ctfd-bot/internal/tracker"

	"github.com/bwmarrin/discordgo"
)

var errChannelNotReady = errors.New("bot channel not resolved")

func eventReply(ev tracker.Event) (render.Reply, error) {
	switch {
	case ev.Kind == tracker.KindNewSolve && ev.Solve != nil:
		return render.NewSolve(ev.Solve), nil
	case ev.Kind == tracker.KindNewChallenge && ev.Challenge != nil:
		return render.NewChallenge(ev.Challenge), nil
	}
	return render.Reply{}, fmt.Errorf("unexpected event %s of kind %q", ev.ID, ev.Kind)
}

// ChannelReporter announces tracker events in the bot channel.
type ChannelReporter struct {
	messenger Messenger
	channel   *Channel
}

func NewChannelReporter(messenger Messenger, channel *Channel) *ChannelReporter {
	return &ChannelReporter{messenger: messenger, channel: channel}
}

func (r *ChannelReporter) Ready() bool {
	_, _, ok := r.channel.Get()
	return ok
}

func (r *ChannelReporter) Report(ctx context.Context, ev tracker.Event) error {
	id, _, ok := r.channel.Get()
	if !ok {
		return errChannelNotReady
	}
	reply, err := eventReply(ev)
	if err != nil {
		return err
	}
	return send(ctx, r.messenger, id, reply)
}

// WebhookReporter announces tracker events through a webhook, pausing while
// the webhook's rate limit bucket is empty.
type WebhookReporter struct {
	client *api.WebhookClient
}

func NewWebhookReporter(client *api.WebhookClient) *WebhookReporter {
	return &WebhookReporter{client: client}
}

func (r *WebhookReporter) Ready() bool {
	return !r.client.Exhausted()
}

func (r *WebhookReporter) Report(ctx context.Context, ev tracker.Event) error {
	reply, err := eventReply(ev)
	if err != nil {
		return err
	}
	for _, chunk := range reply.Chunks() {
		params := &discordgo.WebhookParams{Embeds: []*discordgo.MessageEmbed{embed(reply, chunk)}}
		if err := r.client.Execute(ctx, params); err != nil {
			return err
		}
	}
	return nil
}
