package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/newsbot/core/logger"
	tghelpers "github.com/m3rciful/newsbot/core/telegram/helpers"
)

// run invokes fn as handler name, then records its latency and logs one
// handler.done line.
func (r *Router) run(ctx context.Context, name string, fn func(context.Context) error, extra ...slog.Attr) error {
	start := time.Now()
	ctx = tghelpers.WithHandler(ctx, name)
	err := fn(ctx)
	r.done(ctx, name, time.Since(start), logger.Status(err), err, extra...)
	return err
}

// skip logs an update no handler accepted.
func (r *Router) skip(ctx context.Context, name string) {
	r.done(ctx, name, 0, "skip", nil)
}

func (r *Router) done(ctx context.Context, name string, took time.Duration, status string, err error, extra ...slog.Attr) {
	r.opts.Metrics.ObserveHandler(name, took)
	attrs := append([]slog.Attr{
		slog.String("status", status),
		slog.String("handler", name),
		slog.Duration("duration", took),
	}, extra...)
	lvl := slog.LevelInfo
	if err != nil {
		lvl = slog.LevelError
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.Event(ctx, "tg", lvl, "handler.done", attrs...)
}

// commandName turns "/Show" into "cmd.show".
func commandName(key string) string {
	key = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(key), "/"))
	if key == "" {
		key = "unknown"
	}
	return "cmd." + key
}

// callbackFamily reduces a token to its non-numeric leading parts, so
// "page_2_published" and "view_7" log as "page" and "view".
func callbackFamily(data string) string {
	var parts []string
	for _, p := range strings.Split(data, "_") {
		if strings.Trim(p, "0123456789") == "" {
			break
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, "_")
}

// errorCode prefers an ErrCode method anywhere in the chain and falls back
// to the dynamic type name.
func errorCode(err error) string {
	var coded interface{ ErrCode() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.ErrCode()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	name := fmt.Sprintf("%T", err)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToUpper(strings.TrimLeft(name, "*"))
}
