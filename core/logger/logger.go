// Package logger is the structured logging layer shared by every component.
// Records carry component and event keys plus correlation ids from the
// context, and are rendered as ordered JSON or key=value lines.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/m3rciful/newsbot/core/buildinfo"
	coreconfig "github.com/m3rciful/newsbot/core/config"
)

// L is the process logger. It stays nil until InitLogger runs, and every
// helper in this package is a no-op while it is nil.
var L *slog.Logger

var (
	initOnce     sync.Once
	shutdownOnce sync.Once
	shutdownErr  error

	sinks []*sink
	files []io.Closer

	level  slog.LevelVar
	sample = &ratio{}
	stacks atomic.Bool
)

// settings is the logging section of the config after defaults.
type settings struct {
	json    bool
	order   []string
	level   slog.Level
	num     int
	den     int
	stacks  bool
	profile string
	dir     string
	file    string
	errFile string
}

func settingsFrom(cfg *coreconfig.Config) settings {
	s := settings{json: true, order: defaultOrder, level: slog.LevelInfo, num: 1, den: 50, profile: "prod"}
	if cfg == nil {
		return s
	}
	lc := cfg.Logging
	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		s.profile = p
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		s.json = false
	case "json":
	default:
		s.json = s.profile != "debug" && s.profile != "dev"
	}
	if keys := splitList(lc.KeysOrder); len(keys) > 0 && lc.KeysOrder != "default" {
		s.order = keys
	}
	s.level = parseLevel(lc.Level)
	if num, den, ok := parseRatio(lc.DebugSample); ok {
		s.num, s.den = num, den
	}
	s.stacks = truthy(lc.Stacks)
	s.dir = strings.TrimSpace(lc.Dir)
	s.file = strings.TrimSpace(lc.BotFile)
	s.errFile = strings.TrimSpace(lc.ErrorsFile)
	return s
}

// InitLogger installs the process logger. Only the first call has an effect.
func InitLogger(cfg *coreconfig.Config) error {
	var err error
	initOnce.Do(func() {
		s := settingsFrom(cfg)
		level.Set(s.level)
		sample.set(s.num, s.den)
		stacks.Store(s.stacks || truthy(os.Getenv("LOG_STACKS")))
		if truthy(os.Getenv("TRACE")) {
			sample.set(0, 0)
		}

		outs := []io.Writer{os.Stdout}
		var errOuts []io.Writer
		if s.dir != "" && (s.file != "" || s.errFile != "") {
			if err = os.MkdirAll(s.dir, 0o755); err != nil {
				err = fmt.Errorf("logger: create %s: %w", s.dir, err)
				return
			}
			var main, errs *os.File
			if main, err = openAppend(s.dir, s.file); err != nil {
				return
			}
			if errs, err = openAppend(s.dir, s.errFile); err != nil {
				if main != nil {
					_ = main.Close()
				}
				return
			}
			if main != nil {
				outs = append(outs, main)
				files = append(files, main)
			}
			if errs != nil {
				errOuts = append(errOuts, errs)
				files = append(files, errs)
			}
		}

		h := &recordHandler{level: &level, json: s.json, order: s.order}
		h.out = newSink(64*1024, outs...)
		sinks = append(sinks, h.out)
		if len(errOuts) > 0 {
			h.errs = newSink(16*1024, errOuts...)
			sinks = append(sinks, h.errs)
		}
		L = slog.New(h)
		slog.SetDefault(L)

		format := "kv"
		if s.json {
			format = "json"
		}
		Info(context.Background(), "app", "startup",
			slog.String("go_version", runtime.Version()),
			slog.String("build", buildinfo.String()),
			slog.String("profile", s.profile),
			slog.String("format", format),
		)
	})
	return err
}

func openAppend(dir, name string) (*os.File, error) {
	if name == "" {
		return nil, nil
	}
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logger: open %s: %w", path, err)
	}
	return f, nil
}

// Shutdown flushes queued records and closes log files.
func Shutdown() error {
	shutdownOnce.Do(func() {
		var errs []error
		for _, s := range sinks {
			errs = append(errs, s.Close())
		}
		for _, f := range files {
			errs = append(errs, f.Close())
		}
		shutdownErr = errors.Join(errs...)
	})
	return shutdownErr
}

// Event logs one record for component at level. The record message is the
// event name.
func Event(ctx context.Context, component string, lvl slog.Level, event string, attrs ...slog.Attr) {
	if L == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if !L.Enabled(ctx, lvl) {
		return
	}
	if component = strings.TrimSpace(component); component != "" {
		attrs = append([]slog.Attr{slog.String("component", component)}, attrs...)
	}
	L.LogAttrs(ctx, lvl, event, attrs...)
}

// Debug logs at debug level.
func Debug(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelDebug, event, attrs...)
}

// Info logs at info level.
func Info(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelInfo, event, attrs...)
}

// Warn logs at warn level.
func Warn(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelWarn, event, attrs...)
}

// Error logs at error level; the record is also copied to the errors file.
func Error(ctx context.Context, component, event string, attrs ...slog.Attr) {
	Event(ctx, component, slog.LevelError, event, attrs...)
}

// ShouldSampleDebug reports whether a high-volume debug record should be
// emitted under the configured debug sample ratio.
func ShouldSampleDebug() bool {
	return sample.allow()
}

// StacksEnabled reports whether panic records should carry a stack trace.
func StacksEnabled() bool {
	return stacks.Load()
}

// ratio passes num out of every den calls. A zero ratio passes everything.
type ratio struct {
	mu       sync.Mutex
	num, den int
	n        int
}

func (r *ratio) set(num, den int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if num <= 0 || den <= 0 {
		num, den = 0, 0
	}
	r.num, r.den, r.n = min(num, den), den, 0
}

func (r *ratio) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.den == 0 {
		return true
	}
	r.n = r.n%r.den + 1
	return r.n <= r.num
}

// parseRatio accepts "N/M", a bare "M" meaning 1/M, or "0"/"off" meaning no
// sampling.
func parseRatio(raw string) (int, int, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	switch raw {
	case "":
		return 0, 0, false
	case "0", "off", "none":
		return 0, 0, true
	}
	numRaw, denRaw, hasSlash := strings.Cut(raw, "/")
	if !hasSlash {
		numRaw, denRaw = "1", raw
	}
	num, err1 := strconv.Atoi(strings.TrimSpace(numRaw))
	den, err2 := strconv.Atoi(strings.TrimSpace(denRaw))
	if err1 != nil || err2 != nil || num <= 0 || den <= 0 {
		return 0, 0, false
	}
	return num, den, true
}

func parseLevel(raw string) slog.Level {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "warning") {
		raw = "warn"
	}
	var lvl slog.Level
	if raw == "" || lvl.UnmarshalText([]byte(raw)) != nil {
		return slog.LevelInfo
	}
	return lvl
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func truthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
