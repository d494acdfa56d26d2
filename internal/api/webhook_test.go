package api

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
)

// newTestClient wires a WebhookClient to an in-memory fasthttp server.
func newTestClient(t *testing.T, handler fasthttp.RequestHandler) *WebhookClient {
	t.Helper()

	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go srv.Serve(ln) //nolint:errcheck
	t.Cleanup(func() { ln.Close() })

	c := NewWebhookClient("http://discord.test/api/webhooks/1/token")
	c.client = &fasthttp.Client{
		Dial: func(string) (net.Conn, error) { return ln.Dial() },
	}
	return c
}

func TestExecuteSendsEmbeds(t *testing.T) {
	var got discordgo.WebhookParams
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		assert.Equal(t, "POST", string(ctx.Method()))
		assert.Equal(t, "application/json", string(ctx.Request.Header.ContentType()))
		assert.NoError(t, json.Unmarshal(ctx.PostBody(), &got))

		ctx.Response.Header.Set("X-RateLimit-Bucket", "abcd")
		ctx.Response.Header.Set("X-RateLimit-Limit", "5")
		ctx.Response.Header.Set("X-RateLimit-Remaining", "4")
		ctx.Response.Header.Set("X-RateLimit-Reset-After", "2.5")
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	})

	err := c.Execute(context.Background(), &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{{
			Color:  0xFFCC00,
			Fields: []*discordgo.MessageEmbedField{{Name: "New challenge solved by user1", Value: " • Challenge1 (50 points)"}},
		}},
	})
	require.NoError(t, err)

	require.Len(t, got.Embeds, 1)
	assert.Equal(t, "New challenge solved by user1", got.Embeds[0].Fields[0].Name)

	rl := c.RateLimit()
	assert.Equal(t, "abcd", rl.Bucket)
	assert.Equal(t, 5, rl.Limit)
	assert.Equal(t, 4, rl.Remaining)
	assert.WithinDuration(t, time.Now().Add(2500*time.Millisecond), rl.ResetAt, time.Second)
	assert.False(t, c.Exhausted())
}

func TestExecuteHonorsEmptyBucket(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		calls++
		ctx.Response.Header.Set("X-RateLimit-Remaining", "0")
		ctx.Response.Header.Set("X-RateLimit-Reset-After", "60")
		ctx.SetStatusCode(fasthttp.StatusOK)
	})
	ctx := context.Background()

	require.NoError(t, c.Execute(ctx, &discordgo.WebhookParams{Content: "one"}))
	assert.True(t, c.Exhausted())

	err := c.Execute(ctx, &discordgo.WebhookParams{Content: "two"})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, calls, "no request while the bucket is empty")

	c.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	assert.False(t, c.Exhausted())
}

func TestExecuteTooManyRequests(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.Response.Header.Set("Retry-After", "1.5")
		ctx.SetStatusCode(fasthttp.StatusTooManyRequests)
	})

	err := c.Execute(context.Background(), &discordgo.WebhookParams{Content: "hi"})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.True(t, c.Exhausted())
}

func TestExecuteServerError(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
	})

	err := c.Execute(context.Background(), &discordgo.WebhookParams{Content: "hi"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimited)
}

func TestRateLimitReflectsLastResponse(t *testing.T) {
	c := newTestClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.Response.Header.Set("X-RateLimit-Bucket", "abcd")
		ctx.Response.Header.Set("X-RateLimit-Limit", "5")
		ctx.Response.Header.Set("X-RateLimit-Remaining", "3")
		ctx.Response.Header.Set("X-RateLimit-Reset-After", "1")
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	})
	now := time.Now()
	c.now = func() time.Time { return now }

	require.NoError(t, c.Execute(context.Background(), &discordgo.WebhookParams{Content: "hi"}))

	assert.Equal(t, RateLimitInfo{
		Bucket:    "abcd",
		Limit:     5,
		Remaining: 3,
		ResetAt:   now.Add(time.Second),
	}, c.RateLimit())
}
