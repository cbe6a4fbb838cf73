package middleware

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/newsbot/core/logger"
	tghelpers "github.com/m3rciful/newsbot/core/telegram/helpers"
)

// Access drops updates from users outside the allow-list without replying,
// so outsiders get no confirmation that the bot exists.
func Access(allowed func(userID int64) bool) Func {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, u *tele.Update) error {
			userID := tghelpers.SenderID(u)
			if userID == 0 || allowed == nil || !allowed(userID) {
				logger.Debug(ctx, "tg", "access.denied",
					slog.String("kind", tghelpers.Kind(u)),
					slog.Int64("user_id", userID),
				)
				return nil
			}
			return next(ctx, u)
		}
	}
}

// AllowList returns a membership check over ids.
func AllowList(ids []int64) func(int64) bool {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(id int64) bool {
		_, ok := set[id]
		return ok
	}
}
