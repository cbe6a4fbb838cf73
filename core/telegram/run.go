package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/newsbot/core/config"
	"github.com/m3rciful/newsbot/core/logger"
	"github.com/m3rciful/newsbot/core/metrics"
	"github.com/m3rciful/newsbot/core/telegram/middleware"
)

// BotAPI is the part of the API client the runtime needs.
type BotAPI interface {
	UpdateSource
	DeleteWebhook(ctx context.Context, dropPending bool) error
	SetMyCommands(ctx context.Context, commands []tele.Command) error
}

// RunOptions controls the behaviour of RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	API      BotAPI
	Registry *Registry
	Metrics  *metrics.Metrics

	Handler     middleware.HandlerFunc
	Middlewares []middleware.Func

	// PollBackoff overrides DefaultPollBackoff.
	PollBackoff time.Duration

	OnStart func(ctx context.Context) error
	// OnStop runs after polling ends, with a context that is never cancelled.
	OnStop func(ctx context.Context) error
}

// RunTelegram switches the bot to polling, publishes the command menu and
// polls until ctx is done or another instance takes over.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Config == nil {
		return fmt.Errorf("telegram: nil config provided")
	}
	if opts.API == nil || opts.Handler == nil {
		return fmt.Errorf("telegram: api and handler are required")
	}
	cfg := opts.Config
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	start := time.Now()
	if err := opts.API.DeleteWebhook(ctx, cfg.Telegram.DropPending()); err != nil {
		logger.Warn(ctx, "tg", "delete_webhook",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	} else {
		logger.Info(ctx, "tg", "delete_webhook",
			slog.String("status", "ok"),
			slog.Bool("drop_pending", cfg.Telegram.DropPending()),
		)
	}
	if cmds := reg.ListCommands(true); len(cmds) > 0 {
		if err := opts.API.SetMyCommands(ctx, cmds); err != nil {
			logger.Warn(ctx, "tg", "set_commands",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx); err != nil {
			return err
		}
	}
	logger.Info(ctx, "tg", "mode",
		slog.String("mode", "polling"),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	)

	poller := NewPoller(PollerOptions{
		Source:  opts.API,
		Handler: middleware.Chain(opts.Handler, opts.Middlewares...),
		Timeout: cfg.Telegram.PollTimeout(),
		Backoff: opts.PollBackoff,
		Metrics: opts.Metrics,
	})
	runErr := poller.Run(ctx)

	var stopErr error
	if opts.OnStop != nil {
		stopErr = opts.OnStop(context.WithoutCancel(ctx))
	}
	return errors.Join(runErr, stopErr)
}
