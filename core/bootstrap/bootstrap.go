package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	coreconfig "github.com/m3rciful/newsbot/core/config"
	"github.com/m3rciful/newsbot/core/lock"
	"github.com/m3rciful/newsbot/core/logger"
	"github.com/m3rciful/newsbot/core/metrics"
	"github.com/m3rciful/newsbot/news/store"
)

// Options control the startup pipeline.
type Options struct {
	Config  *coreconfig.Config
	Metrics *metrics.Metrics
	Modules Modules

	LoggerInit func(*coreconfig.Config) error
	// AcquireLock defaults to lock.Acquire on the configured lock path.
	AcquireLock func(lock.Options) (*lock.Lock, error)
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	Store *store.Store
	Lock  *lock.Lock
}

// Close releases the process lock.
func (r *Result) Close() {
	if r != nil && r.Lock != nil {
		r.Lock.Release()
	}
}

// Run initializes the logger, takes the process lock, prepares the media
// directories and loads the content store. The lock is released again when a
// later step fails.
func Run(ctx context.Context, opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	acquire := opts.AcquireLock
	if acquire == nil {
		acquire = lock.Acquire
	}
	lk, err := acquire(lock.Options{Path: cfg.Telegram.LockPath})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	res := &Result{Lock: lk}

	st, err := prepare(ctx, cfg, opts)
	if err != nil {
		res.Close()
		return nil, err
	}
	res.Store = st
	return res, nil
}

func prepare(ctx context.Context, cfg *coreconfig.Config, opts Options) (*store.Store, error) {
	for _, dir := range []string{cfg.News.PhotosDir, cfg.News.BackupDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("bootstrap: create %s: %w", dir, err)
		}
	}

	st := NewStore(cfg, opts.Metrics)
	doc, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: store load failed: %w", err)
	}
	logger.Info(ctx, "store", "store.loaded",
		slog.String("path", st.Path()),
		slog.Int("count", len(doc.Items)),
	)

	seeders := opts.Modules.Seeders
	if seeders == nil {
		seeders = []Seeder{LegacySeeder}
	}
	for _, s := range seeders {
		if err := s.Seed(ctx, st); err != nil {
			return nil, fmt.Errorf("bootstrap: seeding failed: %w", err)
		}
	}
	return st, nil
}

// NewStore builds the content store from configuration without touching the
// disk.
func NewStore(cfg *coreconfig.Config, m *metrics.Metrics) *store.Store {
	return store.New(store.Options{
		Path:              cfg.News.StorePath,
		BackupDir:         cfg.News.BackupDir,
		MaxBackups:        cfg.News.MaxBackups,
		BackupMinInterval: cfg.News.BackupMinInterval(),
		LegacyPath:        cfg.News.LegacyPath,
		Location:          cfg.News.Location(),
		Metrics:           m,
	})
}
