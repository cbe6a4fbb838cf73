// Package lock implements the single-instance guard: an exclusively created
// file holding the owner's pid and acquisition time.
package lock

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/newsbot/core/logger"
)

var (
	// ErrConflict reports a lock held by a live process.
	ErrConflict = errors.New("lock: held by another running instance")
	// ErrStale reports a stale lock that could not be cleared.
	ErrStale = errors.New("lock: stale lock could not be recovered")
)

// ConflictError describes the current holder of a contested lock.
type ConflictError struct {
	Path   string
	Holder Record
}

func (e *ConflictError) Error() string {
	if e.Holder.PID > 0 {
		return fmt.Sprintf("lock: %s held by pid %d since %s", e.Path, e.Holder.PID, e.Holder.AcquiredAt.Format(time.RFC3339))
	}
	return fmt.Sprintf("lock: %s held by an unknown process", e.Path)
}

// Unwrap allows errors.Is(err, ErrConflict).
func (e *ConflictError) Unwrap() error { return ErrConflict }

// Record is the parsed content of a lock file.
type Record struct {
	PID        int
	AcquiredAt time.Time
	Instance   string
}

// Options configure Acquire. Zero values select the current process.
type Options struct {
	Path     string
	PID      int
	Instance string
	// Alive reports whether pid belongs to a running process.
	Alive func(pid int) bool
	Now   func() time.Time
}

// Lock is a held process lock.
type Lock struct {
	path     string
	rec      Record
	mu       sync.Mutex
	released bool
}

// Acquire creates the lock file. An existing file whose owner is gone is
// removed and creation is retried once.
func Acquire(opts Options) (*Lock, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, fmt.Errorf("lock: empty path")
	}
	if opts.PID <= 0 {
		opts.PID = os.Getpid()
	}
	if opts.Instance == "" {
		opts.Instance = uuid.NewString()
	}
	if opts.Alive == nil {
		opts.Alive = ProcessAlive
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("lock: create dir: %w", err)
	}

	ctx := context.Background()
	staleCleared := false
	for {
		rec := Record{PID: opts.PID, AcquiredAt: opts.Now().UTC(), Instance: opts.Instance}
		err := create(opts.Path, rec)
		if err == nil {
			logger.Info(ctx, "lock", "lock.acquired",
				slog.String("path", opts.Path),
				slog.Int("pid", rec.PID),
				slog.String("instance", rec.Instance),
			)
			return &Lock{path: opts.Path, rec: rec}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("lock: create %s: %w", opts.Path, err)
		}

		holder, readErr := Inspect(opts.Path)
		if errors.Is(readErr, fs.ErrNotExist) {
			continue
		}
		if !isStale(holder, opts) {
			return nil, &ConflictError{Path: opts.Path, Holder: holder}
		}
		if staleCleared {
			return nil, fmt.Errorf("%w: %s reappeared with pid %d", ErrStale, opts.Path, holder.PID)
		}
		logger.Warn(ctx, "lock", "lock.stale",
			slog.String("path", opts.Path),
			slog.Int("pid", holder.PID),
		)
		if err := os.Remove(opts.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: remove %s: %v", ErrStale, opts.Path, err)
		}
		staleCleared = true
	}
}

// isStale treats a record as abandoned when its pid is dead, or equals ours,
// which happens when a container restarts with the same pid.
func isStale(holder Record, opts Options) bool {
	if holder.PID <= 0 {
		return false
	}
	if holder.PID == opts.PID {
		return true
	}
	return !opts.Alive(holder.PID)
}

func create(path string, rec Record) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	content := fmt.Sprintf("%d\n%s\n%s\n", rec.PID, rec.AcquiredAt.Format(time.RFC3339Nano), rec.Instance)
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

// Inspect reads the lock file. Unparsable content yields a zero PID.
func Inspect(path string) (Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return Record{}, err
	}
	defer f.Close()

	var rec Record
	sc := bufio.NewScanner(f)
	for line := 0; sc.Scan() && line < 3; line++ {
		text := strings.TrimSpace(sc.Text())
		switch line {
		case 0:
			if pid, err := strconv.Atoi(text); err == nil {
				rec.PID = pid
			}
		case 1:
			if ts, err := time.Parse(time.RFC3339Nano, text); err == nil {
				rec.AcquiredAt = ts
			}
		case 2:
			rec.Instance = text
		}
	}
	return rec, sc.Err()
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// Record returns what was written to the lock file.
func (l *Lock) Record() Record { return l.rec }

// Release removes the lock file. Failures are logged and otherwise ignored;
// a file that now belongs to another pid is left alone.
func (l *Lock) Release() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.released {
		return
	}
	l.released = true

	ctx := context.Background()
	holder, err := Inspect(l.path)
	if err == nil && holder.PID != 0 && holder.PID != l.rec.PID {
		logger.Warn(ctx, "lock", "lock.release",
			slog.String("status", "skip"),
			slog.String("path", l.path),
			slog.Int("pid", holder.PID),
		)
		return
	}
	if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn(ctx, "lock", "lock.release",
			slog.String("status", "fail"),
			slog.String("path", l.path),
			slog.String("err", err.Error()),
		)
		return
	}
	logger.Info(ctx, "lock", "lock.released", slog.String("path", l.path))
}
