package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/newsbot/core/logger"
)

// Recover catches panics in handlers so one bad update cannot stop polling.
func Recover(next HandlerFunc) HandlerFunc {
	return func(ctx context.Context, u *tele.Update) (err error) {
		defer func() {
			if r := recover(); r != nil {
				attrs := []slog.Attr{slog.String("err", fmt.Sprint(r))}
				if logger.StacksEnabled() {
					attrs = append(attrs, slog.String("stack", string(debug.Stack())))
				}
				logger.Error(ctx, "tg", "tg.panic", attrs...)
				err = nil
			}
		}()
		return next(ctx, u)
	}
}
