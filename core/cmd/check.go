package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/m3rciful/newsbot/core/bootstrap"
	coreconfig "github.com/m3rciful/newsbot/core/config"
	"github.com/m3rciful/newsbot/core/lock"
)

// Check validates the configuration, reads the store without modifying it
// and reports who holds the process lock.
func Check(ctx context.Context, w io.Writer, opts Options) error {
	loadConfig := opts.LoadConfig
	if loadConfig == nil {
		loadConfig = coreconfig.Load
	}
	cfg, err := loadConfig(ResolveConfigPath(opts.ConfigPath, opts.ConfigEnvVar))
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	fmt.Fprintf(w, "config: ok (%d operator(s), timezone %s)\n", len(cfg.Telegram.AllowedUserIDs()), cfg.News.Timezone)

	if _, err := os.Stat(cfg.News.StorePath); errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(w, "store: %s missing, created on first run\n", cfg.News.StorePath)
	} else {
		st := bootstrap.NewStore(cfg, nil)
		stats, err := st.Stats(ctx)
		if err != nil {
			return fmt.Errorf("store: %w", err)
		}
		fmt.Fprintf(w, "store: %s (total %d, published %d, drafts %d, deleted %d, on main %d)\n",
			cfg.News.StorePath, stats.Total, stats.Published, stats.Drafts, stats.Deleted, stats.OnMain)
	}

	holder, err := lock.Inspect(cfg.Telegram.LockPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		fmt.Fprintf(w, "lock: %s free\n", cfg.Telegram.LockPath)
	case err != nil:
		fmt.Fprintf(w, "lock: %s unreadable: %v\n", cfg.Telegram.LockPath, err)
	default:
		state := "stale"
		if lock.ProcessAlive(holder.PID) {
			state = "running"
		}
		fmt.Fprintf(w, "lock: %s held by pid %d (%s)\n", cfg.Telegram.LockPath, holder.PID, state)
	}
	return nil
}
