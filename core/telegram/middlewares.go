package telegram

import (
	"time"

	coreconfig "github.com/m3rciful/newsbot/core/config"
	"github.com/m3rciful/newsbot/core/metrics"
	"github.com/m3rciful/newsbot/core/telegram/middleware"
)

// DefaultMiddlewares builds the chain every update passes through, outermost
// first: panic recovery, request logging, metrics, the operator allow-list and
// the per-user rate limit.
func DefaultMiddlewares(cfg *coreconfig.Config, m *metrics.Metrics, onLimited middleware.HandlerFunc) []middleware.Func {
	mws := []middleware.Func{
		middleware.Recover,
		middleware.Logger,
		middleware.Metrics(m),
	}
	if cfg == nil {
		return mws
	}
	mws = append(mws, middleware.Access(middleware.AllowList(cfg.Telegram.AllowedUserIDs())))

	if interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond; interval > 0 {
		ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
		for _, t := range cfg.RateLimit.ExcludeUpdates {
			ex[t] = struct{}{}
		}
		mws = append(mws, middleware.RateLimit(middleware.RateLimitOptions{
			Interval:  interval,
			Exclude:   ex,
			OnLimited: onLimited,
		}))
	}
	return mws
}
