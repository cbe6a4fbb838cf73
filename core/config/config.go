package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Bot API and polling settings.
type TelegramConfig struct {
	Token string `yaml:"token" envconfig:"TG_BOT_TOKEN"`
	// AllowedUsers is a comma separated list of numeric user ids.
	AllowedUsers string `yaml:"allowed_user_ids" envconfig:"TG_ALLOWED_USER_IDS"`
	APIURL       string `yaml:"api_url" envconfig:"TG_API_URL"`
	// PollTimeoutSeconds is the getUpdates long-poll timeout; 0 -> default.
	PollTimeoutSeconds  int    `yaml:"polling_timeout" envconfig:"TG_POLLING_TIMEOUT"`
	DropPendingUpdates  *bool  `yaml:"drop_pending_updates" envconfig:"TG_DROP_PENDING_UPDATES"`
	RateLimitMaxRetries int    `yaml:"rate_limit_max_retries" envconfig:"TG_RATE_LIMIT_MAX_RETRIES"`
	LockPath            string `yaml:"lock_path" envconfig:"TG_BOT_LOCK_PATH"`

	allowed []int64
}

// NewsConfig describes the content store and media locations.
type NewsConfig struct {
	StorePath  string `yaml:"store_path" envconfig:"NEWS_STORE_PATH"`
	PhotosDir  string `yaml:"photos_dir" envconfig:"NEWS_PHOTOS_DIR"`
	BackupDir  string `yaml:"backup_dir" envconfig:"NEWS_BACKUP_DIR"`
	LegacyPath string `yaml:"legacy_path" envconfig:"NEWS_LEGACY_PATH"`

	MaxBackups               int    `yaml:"max_backups" envconfig:"TG_MAX_BACKUPS"`
	BackupMinIntervalSeconds int    `yaml:"backup_min_interval_seconds" envconfig:"TG_BACKUP_MIN_INTERVAL_SECONDS"`
	PerPage                  int    `yaml:"per_page" envconfig:"NEWS_PER_PAGE"`
	Timezone                 string `yaml:"timezone" envconfig:"NEWS_TIMEZONE"`

	location *time.Location
}

// OpsConfig controls the optional health and metrics listener.
type OpsConfig struct {
	// Listen is a host:port pair; empty disables the listener.
	Listen string `yaml:"listen" envconfig:"OPS_LISTEN_ADDR"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order" envconfig:"LOG_KEYS_ORDER"`
	DebugSample string `yaml:"debug_sample" envconfig:"LOG_DEBUG_SAMPLE"`
	Stacks      string `yaml:"stacks" envconfig:"LOG_STACKS"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file" envconfig:"LOG_BOT_FILE"`
	ErrorsFile  string `yaml:"errors_file" envconfig:"LOG_ERRORS_FILE"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

// RateLimitConfig holds settings for per-user inbound throttling.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": button presses
// - "message": text and photo messages
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	News      NewsConfig      `yaml:"news"`
	Ops       OpsConfig       `yaml:"ops"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Defaults applied by Normalize when a value is left unset.
const (
	DefaultAPIURL              = "https://api.telegram.org"
	DefaultPollTimeoutSeconds  = 50
	DefaultRateLimitMaxRetries = 3
	DefaultMaxBackups          = 10
	DefaultBackupMinInterval   = 600
	DefaultPerPage             = 5
	DefaultTimezone            = "Europe/Moscow"

	DefaultStorePath = "data/news/news.json"
	DefaultPhotosDir = "public/news-photos"
	DefaultBackupDir = "data/news/backups"
	DefaultLockPath  = "data/news/telegram-bot.lock"
)

// ErrNoAllowedUsers is returned when no operator ids are configured.
var ErrNoAllowedUsers = errors.New("config: at least one allowed user id is required")

// Load reads an optional YAML file and overlays environment variables.
// An empty path skips the file; a non-empty path must exist.
func Load(path string) (*Config, error) {
	var cfg Config

	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields, applies defaults and resolves paths.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	tg := &cfg.Telegram
	tg.Token = strings.TrimSpace(tg.Token)
	if tg.Token == "" {
		return fmt.Errorf("telegram token is required (TG_BOT_TOKEN)")
	}
	ids, err := ParseUserIDs(tg.AllowedUsers)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return ErrNoAllowedUsers
	}
	tg.allowed = ids

	tg.APIURL = strings.TrimRight(strings.TrimSpace(tg.APIURL), "/")
	if tg.APIURL == "" {
		tg.APIURL = DefaultAPIURL
	}
	if tg.PollTimeoutSeconds < 0 {
		return fmt.Errorf("telegram.polling_timeout must be >= 0")
	}
	if tg.PollTimeoutSeconds == 0 {
		tg.PollTimeoutSeconds = DefaultPollTimeoutSeconds
	}
	if tg.RateLimitMaxRetries < 0 {
		return fmt.Errorf("telegram.rate_limit_max_retries must be >= 0")
	}
	if tg.RateLimitMaxRetries == 0 {
		tg.RateLimitMaxRetries = DefaultRateLimitMaxRetries
	}
	if tg.DropPendingUpdates == nil {
		drop := true
		tg.DropPendingUpdates = &drop
	}

	news := &cfg.News
	if news.MaxBackups < 0 {
		return fmt.Errorf("news.max_backups must be >= 0")
	}
	if news.MaxBackups == 0 {
		news.MaxBackups = DefaultMaxBackups
	}
	if news.BackupMinIntervalSeconds < 0 {
		return fmt.Errorf("news.backup_min_interval_seconds must be >= 0")
	}
	if news.BackupMinIntervalSeconds == 0 {
		news.BackupMinIntervalSeconds = DefaultBackupMinInterval
	}
	if news.PerPage <= 0 {
		news.PerPage = DefaultPerPage
	}
	tz := strings.TrimSpace(news.Timezone)
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("invalid news.timezone %q: %w", tz, err)
	}
	news.Timezone = tz
	news.location = loc

	paths := []struct {
		value *string
		def   string
	}{
		{&news.StorePath, DefaultStorePath},
		{&news.PhotosDir, DefaultPhotosDir},
		{&news.BackupDir, DefaultBackupDir},
		{&tg.LockPath, DefaultLockPath},
		{&news.LegacyPath, ""},
	}
	for _, p := range paths {
		v := strings.TrimSpace(*p.value)
		if v == "" {
			v = p.def
		}
		if v == "" {
			continue
		}
		abs, err := filepath.Abs(v)
		if err != nil {
			return fmt.Errorf("resolve path %q: %w", v, err)
		}
		*p.value = abs
	}

	allowed := map[string]struct{}{
		UpdateCallback: {},
		UpdateMessage:  {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	return nil
}

// ParseUserIDs splits a comma separated id list. Blank entries are skipped.
func ParseUserIDs(raw string) ([]int64, error) {
	var ids []int64
	seen := make(map[int64]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid allowed user id %q", part)
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// AllowedUserIDs returns the parsed operator ids.
func (c TelegramConfig) AllowedUserIDs() []int64 {
	return append([]int64(nil), c.allowed...)
}

// DropPending reports whether queued updates are discarded at startup.
func (c TelegramConfig) DropPending() bool {
	return c.DropPendingUpdates == nil || *c.DropPendingUpdates
}

// PollTimeout returns the long-poll timeout as a duration.
func (c TelegramConfig) PollTimeout() time.Duration {
	return time.Duration(c.PollTimeoutSeconds) * time.Second
}

// Location returns the zone used for display dates.
func (c NewsConfig) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// BackupMinInterval returns the minimum spacing between store backups.
func (c NewsConfig) BackupMinInterval() time.Duration {
	return time.Duration(c.BackupMinIntervalSeconds) * time.Second
}
