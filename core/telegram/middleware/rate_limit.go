package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/newsbot/core/logger"
	tghelpers "github.com/m3rciful/newsbot/core/telegram/helpers"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	Interval time.Duration
	// Exclude lists update kinds ("message", "callback") that bypass the limit.
	Exclude   map[string]struct{}
	OnLimited HandlerFunc
	Now       func() time.Time
}

// albumVerdict remembers how the first part of a user's latest album was
// treated; the remaining parts share it.
type albumVerdict struct {
	id      string
	allowed bool
}

// RateLimit enforces a minimum interval between updates from the same user.
// An album counts as one update.
func RateLimit(opts RateLimitOptions) Func {
	var (
		userLastSeen   = make(map[int64]time.Time)
		userAlbum      = make(map[int64]albumVerdict)
		userLastSeenMu sync.Mutex
	)
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, u *tele.Update) error {
			userID := tghelpers.SenderID(u)
			if userID == 0 || opts.Interval <= 0 {
				return next(ctx, u)
			}
			kind := tghelpers.Kind(u)
			if _, skip := opts.Exclude[kind]; skip {
				return next(ctx, u)
			}

			album := ""
			if u.Message != nil {
				album = u.Message.AlbumID
			}

			now := opts.Now()
			userLastSeenMu.Lock()
			if v, ok := userAlbum[userID]; ok && album != "" && v.id == album {
				userLastSeenMu.Unlock()
				if v.allowed {
					return next(ctx, u)
				}
				return nil
			}
			if last, ok := userLastSeen[userID]; ok && now.Sub(last) < opts.Interval {
				if album != "" {
					userAlbum[userID] = albumVerdict{id: album}
				}
				userLastSeenMu.Unlock()
				logger.Warn(ctx, "tg", "tg.rate_limit",
					slog.String("kind", kind),
					slog.Int64("user_id", userID),
				)
				if opts.OnLimited != nil {
					_ = opts.OnLimited(ctx, u)
				}
				return nil
			}
			userLastSeen[userID] = now
			if album != "" {
				userAlbum[userID] = albumVerdict{id: album, allowed: true}
			}
			userLastSeenMu.Unlock()
			return next(ctx, u)
		}
	}
}
