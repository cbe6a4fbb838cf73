package middleware

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/newsbot/core/metrics"
	tghelpers "github.com/m3rciful/newsbot/core/telegram/helpers"
)

// Metrics counts updates by kind and outcome.
func Metrics(m *metrics.Metrics) Func {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, u *tele.Update) error {
			err := next(ctx, u)
			m.ObserveUpdate(tghelpers.Kind(u), metrics.Outcome(err))
			return err
		}
	}
}
