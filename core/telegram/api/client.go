// Package api is a thin Bot API client over telebot's raw transport. It adds
// bounded rate-limit retries and suppresses idempotent failures.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/newsbot/core/logger"
	"github.com/m3rciful/newsbot/core/metrics"
)

const (
	// DefaultMaxRetries is the rate-limit retry ceiling.
	DefaultMaxRetries = 3
	// DefaultRetryAfter is used when a 429 carries no delay.
	DefaultRetryAfter = 3 * time.Second
)

var retryAfterRe = regexp.MustCompile(`(?i)retry after (\d+)`)

// Raw performs one Bot API request and returns the response body.
// *tele.Bot satisfies it.
type Raw interface {
	Raw(method string, payload interface{}) ([]byte, error)
}

// Config tunes a Client.
type Config struct {
	// Token and APIURL are used for file downloads.
	Token      string
	APIURL     string
	MaxRetries int
	// RetryAfter is the fallback delay for 429 responses.
	RetryAfter time.Duration
	HTTPClient *http.Client
	Metrics    *metrics.Metrics
	// Sleep waits between rate-limited attempts; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Client issues Bot API calls.
type Client struct {
	raw Raw
	cfg Config
}

// New wraps raw with the retry policy from cfg.
func New(raw Raw, cfg Config) *Client {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = DefaultRetryAfter
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.APIURL == "" {
		cfg.APIURL = tele.DefaultApiURL
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	return &Client{raw: raw, cfg: cfg}
}

type envelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// failure is a decoded non-success response.
type failure struct {
	code        int
	description string
	retryAfter  time.Duration
	err         error
}

func (f failure) rateLimited() bool {
	return f.code == http.StatusTooManyRequests ||
		strings.Contains(strings.ToLower(f.description), "too many requests")
}

// Call invokes method with params. Benign failures return (nil, nil).
// Rate-limited calls are retried up to MaxRetries times.
func (c *Client) Call(ctx context.Context, method string, params Options) (json.RawMessage, error) {
	if params == nil {
		params = Options{}
	}
	for attempt := 1; ; attempt++ {
		data, rawErr := c.do(ctx, method, params)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, fail, ok := decode(data, rawErr)
		if ok {
			c.cfg.Metrics.ObserveAPICall(method, "ok")
			return result, nil
		}
		if benign(method, fail.description) {
			c.cfg.Metrics.ObserveAPICall(method, "benign")
			logger.Debug(ctx, "tg.api", "api.benign",
				slog.String("method", method),
				slog.String("reason", fail.description),
			)
			return nil, nil
		}
		if fail.rateLimited() {
			delay := fail.retryAfter
			if delay <= 0 {
				delay = c.cfg.RetryAfter
			}
			if attempt > c.cfg.MaxRetries {
				c.cfg.Metrics.ObserveAPICall(method, "rate_limited")
				return nil, &TransportError{
					Method:      method,
					Code:        http.StatusTooManyRequests,
					Description: Redact(fail.description),
					RetryAfter:  delay,
					RateLimited: true,
					Err:         fail.err,
				}
			}
			c.cfg.Metrics.ObserveRateLimitRetry(method)
			logger.Warn(ctx, "tg.api", "api.rate_limited",
				slog.String("method", method),
				slog.Int("attempt", attempt),
				slog.Duration("retry_after", delay),
			)
			if err := c.cfg.Sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}
		c.cfg.Metrics.ObserveAPICall(method, "fail")
		return nil, &TransportError{
			Method:      method,
			Code:        fail.code,
			Description: Redact(fail.description),
			RetryAfter:  fail.retryAfter,
			Err:         fail.err,
		}
	}
}

// do runs the blocking raw call so ctx cancellation is honoured even while a
// long poll is in flight.
func (c *Client) do(ctx context.Context, method string, params Options) ([]byte, error) {
	type reply struct {
		data []byte
		err  error
	}
	ch := make(chan reply, 1)
	go func() {
		data, err := c.raw.Raw(method, map[string]any(params))
		ch <- reply{data: data, err: err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.data, r.err
	}
}

// decode prefers the response body and falls back to the transport error.
func decode(data []byte, rawErr error) (json.RawMessage, failure, bool) {
	var env envelope
	if len(data) > 0 && json.Unmarshal(data, &env) == nil && (env.OK || env.ErrorCode != 0 || env.Description != "") {
		if env.OK {
			return env.Result, failure{}, true
		}
		f := failure{
			code:        env.ErrorCode,
			description: env.Description,
			retryAfter:  time.Duration(env.Parameters.RetryAfter) * time.Second,
			err:         rawErr,
		}
		if f.retryAfter == 0 {
			f.retryAfter = parseRetryAfter(env.Description)
		}
		return nil, f, false
	}
	if rawErr == nil {
		return nil, failure{description: "malformed response"}, false
	}

	f := failure{err: rawErr}
	var flood tele.FloodError
	var apiErr *tele.Error
	switch {
	case errors.As(rawErr, &flood):
		f.code = http.StatusTooManyRequests
		f.description = "Too Many Requests"
		f.retryAfter = time.Duration(flood.RetryAfter) * time.Second
	case errors.As(rawErr, &apiErr):
		f.code = apiErr.Code
		f.description = apiErr.Description
	default:
		f.description = rawErr.Error()
	}
	if f.retryAfter == 0 {
		f.retryAfter = parseRetryAfter(f.description)
	}
	return nil, f, false
}

func parseRetryAfter(description string) time.Duration {
	m := retryAfterRe.FindStringSubmatch(description)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return time.Duration(n) * time.Second
}

// benign lists failures that mean the desired state already holds.
func benign(method, description string) bool {
	d := strings.ToLower(description)
	switch method {
	case "editMessageText", "editMessageReplyMarkup", "editMessageCaption":
		return strings.Contains(d, "message is not modified")
	case "answerCallbackQuery":
		return strings.Contains(d, "query is too old") || strings.Contains(d, "query id is invalid")
	case "deleteMessage":
		return strings.Contains(d, "message to delete not found")
	}
	return false
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
