package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/newsbot/core/bootstrap"
	coreconfig "github.com/m3rciful/newsbot/core/config"
	"github.com/m3rciful/newsbot/core/logger"
	"github.com/m3rciful/newsbot/core/metrics"
	"github.com/m3rciful/newsbot/core/opsserver"
	coretelegram "github.com/m3rciful/newsbot/core/telegram"
	"github.com/m3rciful/newsbot/core/telegram/api"
	"github.com/m3rciful/newsbot/core/telegram/middleware"
	"github.com/m3rciful/newsbot/news/bot"
)

// DefaultConfigEnvVar names the variable holding the optional YAML path.
const DefaultConfigEnvVar = "NEWSBOT_CONFIG"

// Options describe how to load configuration, bootstrap the app and run the bot.
type Options struct {
	// ConfigPath wins over ConfigEnvVar; both may be empty.
	ConfigPath   string
	ConfigEnvVar string

	LoadConfig func(path string) (*coreconfig.Config, error)
	Bootstrap  func(ctx context.Context, opts bootstrap.Options) (*bootstrap.Result, error)
	// NewAPI builds the Bot API client; tests replace it.
	NewAPI func(cfg *coreconfig.Config, m *metrics.Metrics) (*api.Client, error)

	ShutdownLogger func() error
	RunTelegram    func(ctx context.Context, opts coretelegram.RunOptions) error
}

// ResolveConfigPath picks the explicit path or the environment variable.
func ResolveConfigPath(explicit, envVar string) string {
	if explicit != "" {
		return explicit
	}
	if envVar == "" {
		envVar = DefaultConfigEnvVar
	}
	return os.Getenv(envVar)
}

// Run loads configuration, bootstraps the store and lock, and polls until a
// termination signal arrives or another instance takes over.
func Run(opts Options) error {
	loadConfig := opts.LoadConfig
	if loadConfig == nil {
		loadConfig = coreconfig.Load
	}
	cfgPath := ResolveConfigPath(opts.ConfigPath, opts.ConfigEnvVar)
	if cfgPath != "" {
		log.Printf("loading config: %s", cfgPath)
	}
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("cmd: failed to load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	startedAt := time.Now()
	m := metrics.New()

	boot := opts.Bootstrap
	if boot == nil {
		boot = bootstrap.Run
	}
	res, err := boot(ctx, bootstrap.Options{Config: cfg, Metrics: m})
	if err != nil {
		return fmt.Errorf("cmd: bootstrap failed: %w", err)
	}
	defer res.Close()

	shutdownLogger := opts.ShutdownLogger
	if shutdownLogger == nil {
		shutdownLogger = logger.Shutdown
	}
	defer func() {
		if err := shutdownLogger(); err != nil {
			log.Printf("logger shutdown error: %v", err)
		}
	}()

	newAPI := opts.NewAPI
	if newAPI == nil {
		newAPI = NewAPIClient
	}
	client, err := newAPI(cfg, m)
	if err != nil {
		return fmt.Errorf("cmd: api client: %w", err)
	}

	b := bot.New(bot.Options{
		API:       client,
		Store:     res.Store,
		PhotosDir: cfg.News.PhotosDir,
		PerPage:   cfg.News.PerPage,
		Location:  cfg.News.Location(),
		Metrics:   m,
	})
	defer b.Stop()

	reg := coretelegram.NewRegistry()
	rt := b.Router(reg)

	var ops *opsserver.Server
	if cfg.Ops.Listen != "" {
		ops = opsserver.New(cfg.Ops.Listen, m.Registry)
		if err := ops.Start(ctx); err != nil {
			return fmt.Errorf("cmd: ops listener: %w", err)
		}
	}

	runOpts := coretelegram.RunOptions{
		Config:      cfg,
		API:         client,
		Registry:    reg,
		Metrics:     m,
		Handler:     rt.Handle,
		Middlewares: coretelegram.DefaultMiddlewares(cfg, m, slowDown(client)),
		OnStart: func(ctx context.Context) error {
			if ops != nil {
				ops.SetReady(true)
			}
			logger.Info(ctx, "app", "ready",
				slog.Duration("startup_duration", logger.RoundMS(time.Since(startedAt))),
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info(ctx, "app", "shutdown")
			b.Stop()
			var err error
			if ops != nil {
				err = ops.Shutdown(ctx)
			}
			res.Close()
			return err
		},
	}

	run := opts.RunTelegram
	if run == nil {
		run = coretelegram.RunTelegram
	}
	return run(ctx, runOpts)
}

// NewAPIClient wires the Bot API client over telebot's raw transport. The
// bot is created offline so startup does not depend on getMe.
func NewAPIClient(cfg *coreconfig.Config, m *metrics.Metrics) (*api.Client, error) {
	httpClient := coretelegram.BuildHTTPClient(cfg.Telegram.PollTimeout())
	tb, err := tele.NewBot(tele.Settings{
		Token:   cfg.Telegram.Token,
		URL:     cfg.Telegram.APIURL,
		Client:  httpClient,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("telebot: %s", api.Redact(err.Error()))
	}
	return api.New(tb, api.Config{
		Token:      cfg.Telegram.Token,
		APIURL:     cfg.Telegram.APIURL,
		MaxRetries: cfg.Telegram.RateLimitMaxRetries,
		HTTPClient: httpClient,
		Metrics:    m,
	}), nil
}

// slowDown answers throttled button presses so the client stops spinning.
func slowDown(client *api.Client) middleware.HandlerFunc {
	return func(ctx context.Context, u *tele.Update) error {
		if u == nil || u.Callback == nil {
			return nil
		}
		return client.AnswerCallbackQuery(ctx, u.Callback.ID, "Too many requests, slow down", false)
	}
}
