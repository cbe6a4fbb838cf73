package helpers

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/newsbot/core/logger"
)

// BuildContext derives a per-update context carrying rid and update/user/chat
// metadata for consistent service logging.
func BuildContext(parent context.Context, u *tele.Update) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	if u == nil {
		return parent
	}
	if logger.RIDFrom(parent) != "" {
		return parent
	}

	userID, chatID := SenderID(u), ChatID(u)
	ctx := logger.WithRID(parent, logger.BuildRID(u.ID, chatID, userID))
	return logger.WithUpdateMeta(ctx, u.ID, userID, chatID)
}

// WithHandler enriches ctx with handler metadata for downstream logs.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		return ctx
	}
	return logger.WithHandler(ctx, handler)
}
