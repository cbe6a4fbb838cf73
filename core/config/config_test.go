package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvAppliesDefaults(t *testing.T) {
	t.Setenv("TG_BOT_TOKEN", "123:abc")
	t.Setenv("TG_ALLOWED_USER_IDS", "42, 7,42")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []int64{42, 7}, cfg.Telegram.AllowedUserIDs())
	assert.Equal(t, DefaultPollTimeoutSeconds, cfg.Telegram.PollTimeoutSeconds)
	assert.Equal(t, DefaultRateLimitMaxRetries, cfg.Telegram.RateLimitMaxRetries)
	assert.True(t, cfg.Telegram.DropPending())
	assert.Equal(t, DefaultAPIURL, cfg.Telegram.APIURL)
	assert.Equal(t, DefaultMaxBackups, cfg.News.MaxBackups)
	assert.Equal(t, DefaultBackupMinInterval, cfg.News.BackupMinIntervalSeconds)
	assert.Equal(t, DefaultPerPage, cfg.News.PerPage)
	assert.True(t, filepath.IsAbs(cfg.News.StorePath))
	assert.True(t, filepath.IsAbs(cfg.Telegram.LockPath))
	assert.Empty(t, cfg.News.LegacyPath)
	assert.NotNil(t, cfg.News.Location())
}

func TestLoadRequiresAllowedUsers(t *testing.T) {
	t.Setenv("TG_BOT_TOKEN", "123:abc")
	t.Setenv("TG_ALLOWED_USER_IDS", " , ")

	_, err := Load("")
	if !errors.Is(err, ErrNoAllowedUsers) {
		t.Fatalf("Load() error = %v, want ErrNoAllowedUsers", err)
	}
}

func TestLoadRejectsInvalidUserID(t *testing.T) {
	t.Setenv("TG_BOT_TOKEN", "123:abc")
	t.Setenv("TG_ALLOWED_USER_IDS", "42,abc")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "abc")
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("TG_BOT_TOKEN", "")
	t.Setenv("TG_ALLOWED_USER_IDS", "1")

	_, err := Load("")
	require.Error(t, err)
}

func TestLoadYAMLThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "newsbot.yaml")
	yml := []byte(`telegram:
  token: "from-yaml"
  allowed_user_ids: "5"
  drop_pending_updates: false
news:
  store_path: "` + filepath.ToSlash(filepath.Join(dir, "news.json")) + `"
  max_backups: 3
`)
	require.NoError(t, os.WriteFile(path, yml, 0o644))

	t.Setenv("TG_BOT_TOKEN", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, []int64{5}, cfg.Telegram.AllowedUserIDs())
	assert.False(t, cfg.Telegram.DropPending())
	assert.Equal(t, 3, cfg.News.MaxBackups)
	assert.Equal(t, filepath.Join(dir, "news.json"), cfg.News.StorePath)
}

func TestNormalizeRejectsUnknownRateLimitExclusion(t *testing.T) {
	cfg := &Config{
		Telegram:  TelegramConfig{Token: "t", AllowedUsers: "1"},
		RateLimit: RateLimitConfig{ExcludeUpdates: []string{"inline_query"}},
	}
	if err := Normalize(cfg); err == nil {
		t.Fatal("Normalize() error = nil, want invalid exclusion")
	}
}
