package bootstrap

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/newsbot/core/config"
	"github.com/m3rciful/newsbot/core/lock"
	"github.com/m3rciful/newsbot/news"
	"github.com/m3rciful/newsbot/news/store"
)

func testConfig(t *testing.T) *coreconfig.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &coreconfig.Config{}
	cfg.Telegram.Token = "1:x"
	cfg.Telegram.AllowedUsers = "42"
	cfg.Telegram.LockPath = filepath.Join(dir, "bot.lock")
	cfg.News.StorePath = filepath.Join(dir, "news", "news.json")
	cfg.News.PhotosDir = filepath.Join(dir, "photos")
	cfg.News.BackupDir = filepath.Join(dir, "backups")
	cfg.News.Timezone = "UTC"
	require.NoError(t, coreconfig.Normalize(cfg))
	return cfg
}

func noLogger(*coreconfig.Config) error { return nil }

// foreignHolder acquires the lock as if another live process owned it.
func foreignHolder(o lock.Options) (*lock.Lock, error) {
	o.PID = 999999
	o.Alive = func(int) bool { return true }
	return lock.Acquire(o)
}

func TestRunPreparesEverything(t *testing.T) {
	cfg := testConfig(t)
	res, err := Run(context.Background(), Options{Config: cfg, LoggerInit: noLogger})
	require.NoError(t, err)
	defer res.Close()

	for _, p := range []string{cfg.News.StorePath, cfg.News.PhotosDir, cfg.News.BackupDir, cfg.Telegram.LockPath} {
		_, err := os.Stat(p)
		assert.NoError(t, err, p)
	}
	doc, err := res.Store.Read(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, doc.Items)

	res.Close()
	_, err = os.Stat(cfg.Telegram.LockPath)
	assert.True(t, errors.Is(err, os.ErrNotExist), "lock must be released")
}

func TestRunRefusesSecondInstance(t *testing.T) {
	cfg := testConfig(t)
	first, err := Run(context.Background(), Options{Config: cfg, LoggerInit: noLogger, AcquireLock: foreignHolder})
	require.NoError(t, err)
	defer first.Close()

	_, err = Run(context.Background(), Options{
		Config:     cfg,
		LoggerInit: noLogger,
		AcquireLock: func(o lock.Options) (*lock.Lock, error) {
			o.Alive = func(int) bool { return true }
			return lock.Acquire(o)
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, lock.ErrConflict)
}

func TestRunReleasesLockOnFailure(t *testing.T) {
	cfg := testConfig(t)
	boom := errors.New("boom")
	_, err := Run(context.Background(), Options{
		Config:     cfg,
		LoggerInit: noLogger,
		Modules: Modules{Seeders: []Seeder{SeederFunc(func(context.Context, *store.Store) error {
			return boom
		})}},
	})
	require.ErrorIs(t, err, boom)

	_, statErr := os.Stat(cfg.Telegram.LockPath)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "lock must be released after a failed start")
}

func TestRunSeedsLegacyExport(t *testing.T) {
	cfg := testConfig(t)
	legacy := filepath.Join(t.TempDir(), "legacy.json")
	require.NoError(t, os.WriteFile(legacy, []byte(`{
  "news": [{"id": 3, "title": "Old story", "text": ["Body"], "date": "01.02.2024"}],
  "main": [{"href": "/news/3"}]
}`), 0o644))
	cfg.News.LegacyPath = legacy

	res, err := Run(context.Background(), Options{Config: cfg, LoggerInit: noLogger})
	require.NoError(t, err)
	defer res.Close()

	it, err := res.Store.Get(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Old story", it.Title)
	assert.Equal(t, news.StatusPublished, it.Status)
	assert.True(t, it.ShowOnMain)
}

func TestRunRequiresConfig(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	require.Error(t, err)
}
