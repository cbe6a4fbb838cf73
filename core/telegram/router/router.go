// Package router maps updates to commands, callbacks and the editing session.
package router

import (
	"context"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/newsbot/core/metrics"
	tg "github.com/m3rciful/newsbot/core/telegram"
)

// Options wire the router to its handlers.
type Options struct {
	Registry       *tg.Registry
	FSM            FSM
	Callback       CallbackHandler
	Fallback       MessageHandler
	UnknownCommand UnknownCommandHandler
	Answerer       Answerer
	Metrics        *metrics.Metrics
}

// Router dispatches one update at a time.
type Router struct {
	opts Options
}

// New returns a Router.
func New(opts Options) *Router {
	return &Router{opts: opts}
}

// Handle routes u; it matches middleware.HandlerFunc.
func (r *Router) Handle(ctx context.Context, u *tele.Update) error {
	switch {
	case u == nil:
		return nil
	case u.Callback != nil:
		return r.routeCallback(ctx, u.Callback)
	case u.Message != nil:
		return r.routeMessage(ctx, u.Message)
	}
	return nil
}
