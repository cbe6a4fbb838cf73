package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/newsbot/core/bootstrap"
	coreconfig "github.com/m3rciful/newsbot/core/config"
	"github.com/m3rciful/newsbot/core/metrics"
	coretelegram "github.com/m3rciful/newsbot/core/telegram"
	"github.com/m3rciful/newsbot/core/telegram/api"
)

type okRaw struct{}

func (okRaw) Raw(string, interface{}) ([]byte, error) {
	return []byte(`{"ok":true,"result":true}`), nil
}

func testConfig(t *testing.T) *coreconfig.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &coreconfig.Config{}
	cfg.Telegram.Token = "1:x"
	cfg.Telegram.AllowedUsers = "42"
	cfg.Telegram.LockPath = filepath.Join(dir, "bot.lock")
	cfg.News.StorePath = filepath.Join(dir, "news.json")
	cfg.News.PhotosDir = filepath.Join(dir, "photos")
	cfg.News.BackupDir = filepath.Join(dir, "backups")
	cfg.News.Timezone = "UTC"
	require.NoError(t, coreconfig.Normalize(cfg))
	return cfg
}

func testOptions(cfg *coreconfig.Config, run func(context.Context, coretelegram.RunOptions) error) Options {
	return Options{
		LoadConfig: func(string) (*coreconfig.Config, error) { return cfg, nil },
		Bootstrap: func(ctx context.Context, o bootstrap.Options) (*bootstrap.Result, error) {
			o.LoggerInit = func(*coreconfig.Config) error { return nil }
			return bootstrap.Run(ctx, o)
		},
		NewAPI: func(*coreconfig.Config, *metrics.Metrics) (*api.Client, error) {
			return api.New(okRaw{}, api.Config{}), nil
		},
		ShutdownLogger: func() error { return nil },
		RunTelegram:    run,
	}
}

func TestRunWiresLifecycle(t *testing.T) {
	cfg := testConfig(t)
	var started, lockHeld bool
	err := Run(testOptions(cfg, func(ctx context.Context, o coretelegram.RunOptions) error {
		require.NotNil(t, o.Handler)
		require.NotEmpty(t, o.Middlewares)
		require.NotEmpty(t, o.Registry.ListCommands(true))
		require.NoError(t, o.OnStart(ctx))
		started = true
		_, statErr := os.Stat(cfg.Telegram.LockPath)
		lockHeld = statErr == nil
		return o.OnStop(context.WithoutCancel(ctx))
	}))
	require.NoError(t, err)
	assert.True(t, started)
	assert.True(t, lockHeld, "lock must be held while polling")

	_, statErr := os.Stat(cfg.Telegram.LockPath)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "lock must be released on stop")
}

func TestRunPropagatesMultiInstance(t *testing.T) {
	cfg := testConfig(t)
	err := Run(testOptions(cfg, func(context.Context, coretelegram.RunOptions) error {
		return coretelegram.ErrMultiInstance
	}))
	assert.ErrorIs(t, err, coretelegram.ErrMultiInstance)

	_, statErr := os.Stat(cfg.Telegram.LockPath)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "lock must be released on early exit")
}

func TestRunReportsConfigErrors(t *testing.T) {
	boom := errors.New("bad config")
	err := Run(Options{LoadConfig: func(string) (*coreconfig.Config, error) { return nil, boom }})
	assert.ErrorIs(t, err, boom)
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv(DefaultConfigEnvVar, "/etc/newsbot.yaml")
	assert.Equal(t, "/tmp/x.yaml", ResolveConfigPath("/tmp/x.yaml", ""))
	assert.Equal(t, "/etc/newsbot.yaml", ResolveConfigPath("", ""))
	t.Setenv("OTHER_CONFIG", "/srv/other.yaml")
	assert.Equal(t, "/srv/other.yaml", ResolveConfigPath("", "OTHER_CONFIG"))
}

func TestCheckReportsStoreAndLock(t *testing.T) {
	cfg := testConfig(t)
	opts := testOptions(cfg, nil)

	var out bytes.Buffer
	require.NoError(t, Check(context.Background(), &out, opts))
	assert.Contains(t, out.String(), "config: ok (1 operator(s), timezone UTC)")
	assert.Contains(t, out.String(), "missing, created on first run")
	assert.Contains(t, out.String(), "free")
	_, err := os.Stat(cfg.News.StorePath)
	assert.True(t, errors.Is(err, os.ErrNotExist), "check must not create the store")

	require.NoError(t, os.WriteFile(cfg.News.StorePath, []byte(`{"version":1,"lastId":0,"items":[]}`), 0o644))
	out.Reset()
	require.NoError(t, Check(context.Background(), &out, opts))
	assert.Contains(t, out.String(), "total 0")
}
