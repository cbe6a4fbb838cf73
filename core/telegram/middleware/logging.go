package middleware

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/newsbot/core/logger"
	"github.com/m3rciful/newsbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/newsbot/core/telegram/helpers"
)

// Logger attaches rid and update metadata to ctx and logs one receipt line
// per update.
func Logger(next HandlerFunc) HandlerFunc {
	return func(ctx context.Context, u *tele.Update) error {
		ctx = tghelpers.BuildContext(ctx, u)

		if logger.ShouldSampleDebug() {
			attrs := []slog.Attr{
				slog.String("status", "ok"),
				slog.String("kind", tghelpers.Kind(u)),
			}
			if user := tghelpers.Sender(u); user != nil && user.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
			}
			switch {
			case u.Callback != nil:
				attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(callbacks.Data(u.Callback), 128)))
			case u.Message != nil:
				if t := tghelpers.MessageText(u.Message); t != "" {
					attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
				}
				if u.Message.AlbumID != "" {
					attrs = append(attrs, slog.String("group_id", u.Message.AlbumID))
				}
			}
			logger.Debug(ctx, "tg", "update.received", attrs...)
		}

		return next(ctx, u)
	}
}
