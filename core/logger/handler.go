package logger

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"
)

const tsLayout = "2006-01-02T15:04:05.000Z07:00"

// recordHandler renders records as single JSON or key=value lines. Error
// records are written to errs as well when it is set.
type recordHandler struct {
	level slog.Leveler
	out   *sink
	errs  *sink
	json  bool
	order []string

	preset []slog.Attr
	group  string
}

// Enabled implements slog.Handler.
func (h *recordHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *recordHandler) Handle(ctx context.Context, r slog.Record) error {
	e := make(entry, 12+r.NumAttrs())
	e["ts"] = r.Time.UTC().Truncate(time.Millisecond).Format(tsLayout)
	e["level"] = r.Level.String()
	for _, a := range h.preset {
		e.add("", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		e.add(h.group, a)
		return true
	})
	metaFrom(ctx).fields(e)

	if e.str("event") == "" {
		e["event"] = r.Message
		if r.Message == "" {
			e["event"] = "unknown"
		}
	}
	if e.str("component") == "" {
		e["component"] = "app"
	}
	e.tidy()

	var line []byte
	if h.json {
		var err error
		if line, err = e.appendJSON(make([]byte, 0, 256), h.order); err != nil {
			return err
		}
	} else {
		line = e.appendKV(make([]byte, 0, 256), h.order)
	}
	if r.Level >= slog.LevelError && h.errs != nil {
		if err := h.errs.Write(line); err != nil {
			return err
		}
	}
	return h.out.Write(line)
}

// WithAttrs implements slog.Handler.
func (h *recordHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	c := *h
	c.preset = slices.Clip(h.preset)
	for _, a := range attrs {
		if h.group != "" {
			a = slog.Attr{Key: h.group + "." + a.Key, Value: a.Value}
		}
		c.preset = append(c.preset, a)
	}
	return &c
}

// WithGroup implements slog.Handler.
func (h *recordHandler) WithGroup(name string) slog.Handler {
	name = strings.TrimSpace(name)
	if name == "" {
		return h
	}
	c := *h
	if c.group != "" {
		name = c.group + "." + name
	}
	c.group = name
	return &c
}
