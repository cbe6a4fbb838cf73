package lock

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAcquireConflictThenStaleRecovery(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bot.lock")
	alive := map[int]bool{100: true}
	isAlive := func(pid int) bool { return alive[pid] }

	first, err := Acquire(Options{Path: path, PID: 100, Alive: isAlive})
	if err != nil {
		t.Fatalf("Acquire(first) error = %v", err)
	}
	if first.Record().PID != 100 {
		t.Fatalf("first pid = %d, want 100", first.Record().PID)
	}

	_, err = Acquire(Options{Path: path, PID: 200, Alive: isAlive})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Acquire(second) error = %v, want ErrConflict", err)
	}
	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.Holder.PID != 100 {
		t.Fatalf("Acquire(second) holder = %+v, want pid 100", conflict)
	}

	alive[100] = false
	third, err := Acquire(Options{Path: path, PID: 300, Alive: isAlive})
	if err != nil {
		t.Fatalf("Acquire(third) error = %v", err)
	}
	rec, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if rec.PID != 300 {
		t.Fatalf("lock pid = %d, want 300", rec.PID)
	}
	third.Release()
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("lock file still present after release: %v", err)
	}
}

func TestLockFileFormat(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "bot.lock")
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	l, err := Acquire(Options{Path: path, PID: 4242, Instance: "inst-1", Now: func() time.Time { return now }})
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer l.Release()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	if len(lines) != 3 || lines[0] != "4242" || lines[2] != "inst-1" {
		t.Fatalf("lock content = %q", raw)
	}
	if ts, err := time.Parse(time.RFC3339Nano, lines[1]); err != nil || !ts.Equal(now) {
		t.Fatalf("lock timestamp = %q, err = %v", lines[1], err)
	}
}

func TestUnreadableLockIsConflict(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bot.lock")
	if err := os.WriteFile(path, []byte("garbage\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	_, err := Acquire(Options{Path: path, PID: 1, Alive: func(int) bool { return false }})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("Acquire() error = %v, want ErrConflict", err)
	}
}

func TestOwnPIDIsTreatedAsStale(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bot.lock")
	if err := os.WriteFile(path, []byte("77\n2024-01-01T00:00:00Z\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	l, err := Acquire(Options{Path: path, PID: 77, Alive: func(int) bool { return true }})
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	l.Release()
}

func TestReleaseIsIdempotentAndKeepsForeignLock(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bot.lock")
	l, err := Acquire(Options{Path: path, PID: 10})
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := os.WriteFile(path, []byte("11\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	l.Release()
	l.Release()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("foreign lock removed: %v", err)
	}
}

func TestProcessAliveSelf(t *testing.T) {
	t.Parallel()

	if !ProcessAlive(os.Getpid()) {
		t.Fatal("ProcessAlive(self) = false")
	}
	if ProcessAlive(0) {
		t.Fatal("ProcessAlive(0) = true")
	}
}
