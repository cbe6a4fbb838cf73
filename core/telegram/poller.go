package telegram

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/newsbot/core/logger"
	"github.com/m3rciful/newsbot/core/metrics"
	"github.com/m3rciful/newsbot/core/telegram/api"
	"github.com/m3rciful/newsbot/core/telegram/middleware"
)

const (
	// DefaultPollTimeout is the long-poll wait passed to getUpdates.
	DefaultPollTimeout = 30 * time.Second
	// DefaultPollBackoff is the pause after a failed poll.
	DefaultPollBackoff = 3 * time.Second
)

// AllowedUpdates are the update kinds requested from the server.
var AllowedUpdates = []string{"message", "callback_query"}

// ErrMultiInstance reports that another process is polling with the same
// token. The poller stops and the process should exit.
var ErrMultiInstance = errors.New("telegram: another instance is polling with this token")

// UpdateSource long-polls for updates.
type UpdateSource interface {
	GetUpdates(ctx context.Context, offset, timeoutSeconds int, allowed []string) ([]tele.Update, error)
}

// PollerOptions configure NewPoller.
type PollerOptions struct {
	Source  UpdateSource
	Handler middleware.HandlerFunc
	Timeout time.Duration
	Backoff time.Duration
	Allowed []string
	Metrics *metrics.Metrics
	Sleep   func(ctx context.Context, d time.Duration) error
}

// Poller fetches updates and hands them to the handler one at a time.
type Poller struct {
	opts   PollerOptions
	offset int
}

// NewPoller applies defaults to opts.
func NewPoller(opts PollerOptions) *Poller {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultPollTimeout
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultPollBackoff
	}
	if len(opts.Allowed) == 0 {
		opts.Allowed = AllowedUpdates
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	return &Poller{opts: opts}
}

// Offset is the next update id to request.
func (p *Poller) Offset() int { return p.offset }

// Run polls until ctx is done, returning nil, or until a conflict is
// reported, returning ErrMultiInstance. Other failures are logged and
// retried after the backoff.
func (p *Poller) Run(ctx context.Context) error {
	if p.opts.Source == nil || p.opts.Handler == nil {
		return errors.New("telegram: poller requires a source and a handler")
	}
	timeoutSeconds := int(p.opts.Timeout / time.Second)

	logger.Info(ctx, "tg", "poll.start",
		slog.Int("timeout_seconds", timeoutSeconds),
		slog.Int("offset", p.offset),
	)
	for {
		if ctx.Err() != nil {
			return nil
		}
		updates, err := p.opts.Source.GetUpdates(ctx, p.offset, timeoutSeconds, p.opts.Allowed)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if api.IsConflict(err) {
				logger.Error(ctx, "tg", "poll.conflict",
					slog.String("status", "fail"),
					slog.String("err", err.Error()),
				)
				return ErrMultiInstance
			}
			p.opts.Metrics.ObservePollError()
			logger.Warn(ctx, "tg", "poll.error",
				slog.String("status", "retry"),
				slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
				slog.Duration("backoff", p.opts.Backoff),
			)
			if err := p.opts.Sleep(ctx, p.opts.Backoff); err != nil {
				return nil
			}
			continue
		}

		for i := range updates {
			u := &updates[i]
			// Advance first so a failing update is never redelivered.
			if u.ID >= p.offset {
				p.offset = u.ID + 1
			}
			if err := p.opts.Handler(ctx, u); err != nil {
				logger.Debug(ctx, "tg", "poll.update_failed",
					slog.Int("update_id", u.ID),
					slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
				)
			}
		}
	}
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
