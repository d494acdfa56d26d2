package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"ctfd-bot/internal/constants"

	"github.com/bwmarrin/discordgo"
	"github.com/valyala/fasthttp"
)

var ErrRateLimited = errors.New("webhook rate limited")

// WebhookClient posts messages to a Discord webhook URL.
type WebhookClient struct {
	url         string
	client      *fasthttp.Client
	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo
	now         func() time.Time
}

type RateLimitInfo struct {
	Bucket    string
	Limit     int
	Remaining int
	ResetAt   time.Time
}

func NewWebhookClient(url string) *WebhookClient {
	return &WebhookClient{
		url: url,
		client: &fasthttp.Client{
			MaxConnsPerHost:     4,
			ReadTimeout:         constants.WebhookTimeout,
			WriteTimeout:        constants.WebhookTimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		rateLimit: RateLimitInfo{Limit: -1, Remaining: -1},
		now:       time.Now,
	}
}

func (c *WebhookClient) RateLimit() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

// Exhausted reports whether the last response emptied the bucket and the
// reset time has not passed yet.
func (c *WebhookClient) Exhausted() bool {
	rl := c.RateLimit()
	return rl.Remaining == 0 && c.now().Before(rl.ResetAt)
}

func (c *WebhookClient) updateRateLimit(resp *fasthttp.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	now := c.now()
	if bucket := string(resp.Header.Peek("X-RateLimit-Bucket")); bucket != "" {
		c.rateLimit.Bucket = bucket
	}
	if limit := string(resp.Header.Peek("X-RateLimit-Limit")); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			c.rateLimit.Limit = val
		}
	}
	if remaining := string(resp.Header.Peek("X-RateLimit-Remaining")); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			c.rateLimit.Remaining = val
		}
	}
	if after := string(resp.Header.Peek("X-RateLimit-Reset-After")); after != "" {
		if val, err := strconv.ParseFloat(after, 64); err == nil {
			c.rateLimit.ResetAt = now.Add(time.Duration(val * float64(time.Second)))
		}
	}
	if resp.StatusCode() == fasthttp.StatusTooManyRequests {
		c.rateLimit.Remaining = 0
		if retry := string(resp.Header.Peek("Retry-After")); retry != "" {
			if val, err := strconv.ParseFloat(retry, 64); err == nil {
				c.rateLimit.ResetAt = now.Add(time.Duration(val * float64(time.Second)))
			}
		}
	}
}

// Execute sends params to the webhook. It fails fast with ErrRateLimited
// while the bucket is exhausted.
func (c *WebhookClient) Execute(ctx context.Context, params *discordgo.WebhookParams) error {
	if c.Exhausted() {
		return ErrRateLimited
	}

	body, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = c.now().Add(constants.WebhookTimeout)
	}
	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return fmt.Errorf("failed to call webhook: %w", err)
	}

	c.updateRateLimit(resp)

	switch resp.StatusCode() {
	case fasthttp.StatusOK, fasthttp.StatusNoContent:
		return nil
	case fasthttp.StatusTooManyRequests:
		return ErrRateLimited
	}
	return fmt.Errorf("webhook error: %d", resp.StatusCode())
}
