// Package middleware wraps update handlers with cross-cutting behaviour.
package middleware

import (
	"context"

	tele "gopkg.in/telebot.v4"
)

// HandlerFunc processes one update.
type HandlerFunc func(ctx context.Context, u *tele.Update) error

// Func wraps a HandlerFunc.
type Func func(next HandlerFunc) HandlerFunc

// Chain applies mws so that the first one runs outermost.
func Chain(h HandlerFunc, mws ...Func) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}
