package store

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/m3rciful/newsbot/core/logger"
	"github.com/m3rciful/newsbot/core/metrics"
)

const (
	backupPrefix = "news-backup-"
	backupSuffix = ".json"
)

// maybeBackup copies the current primary file into BackupDir when the minimum
// interval has elapsed, then prunes old copies. Failures are logged only.
func (s *Store) maybeBackup(ctx context.Context, now time.Time) {
	if s.opts.BackupDir == "" {
		return
	}
	if !s.lastBackup.IsZero() && now.Sub(s.lastBackup) < s.opts.BackupMinInterval {
		return
	}
	if _, err := os.Stat(s.opts.Path); err != nil {
		return
	}

	name := backupPrefix + timestampSuffix(now) + backupSuffix
	dst := filepath.Join(s.opts.BackupDir, name)
	err := copyFile(s.opts.Path, dst)
	s.opts.Metrics.ObserveBackup(metrics.Outcome(err))
	if err != nil {
		logger.Warn(ctx, "store", "store.backup",
			slog.String("status", "fail"),
			slog.String("path", dst),
			slog.String("err", err.Error()),
		)
		return
	}
	s.lastBackup = now
	logger.Info(ctx, "store", "store.backup",
		slog.String("status", "ok"),
		slog.String("path", dst),
	)
	s.pruneBackups(ctx)
}

func (s *Store) pruneBackups(ctx context.Context) {
	names, err := listBackups(s.opts.BackupDir)
	if err != nil {
		logger.Warn(ctx, "store", "store.backup.prune",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return
	}
	if len(names) <= s.opts.MaxBackups {
		return
	}
	for _, name := range names[s.opts.MaxBackups:] {
		path := filepath.Join(s.opts.BackupDir, name)
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn(ctx, "store", "store.backup.prune",
				slog.String("status", "fail"),
				slog.String("path", path),
				slog.String("err", err.Error()),
			)
		}
	}
}

// listBackups returns backup file names, newest first. The embedded UTC
// timestamp sorts lexically.
func listBackups(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		n := e.Name()
		if e.Type().IsRegular() && strings.HasPrefix(n, backupPrefix) && strings.HasSuffix(n, backupSuffix) {
			names = append(names, n)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Backups lists retained backup files, newest first.
func (s *Store) Backups() ([]string, error) {
	return listBackups(s.opts.BackupDir)
}
