package router

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/newsbot/core/logger"
	"github.com/m3rciful/newsbot/core/telegram/callbacks"
)

// DefaultFailureText acknowledges a callback whose handler failed without
// choosing its own reply.
const DefaultFailureText = "Something went wrong, please try again"

// Ack is the acknowledgement shown for a callback.
type Ack struct {
	Text  string
	Alert bool
}

// CallbackHandler handles a callback and returns its acknowledgement.
type CallbackHandler func(ctx context.Context, cb *tele.Callback) (Ack, error)

// Answerer acknowledges callbacks.
type Answerer interface {
	AnswerCallbackQuery(ctx context.Context, callbackID, text string, alert bool) error
}

// routeCallback runs the callback handler and acknowledges the query exactly
// once, whatever the outcome.
func (r *Router) routeCallback(ctx context.Context, cb *tele.Callback) error {
	data := callbacks.Data(cb)
	name := "callback." + callbackFamily(data)

	var ack Ack
	err := r.run(ctx, name, func(ctx context.Context) error {
		if r.opts.Callback == nil {
			ack = Ack{Text: "Unsupported action"}
			return nil
		}
		var herr error
		ack, herr = r.opts.Callback(ctx, cb)
		return herr
	}, slog.String("cb_key", logger.SanitizeLimit(data, 64)))

	if err != nil && ack.Text == "" {
		ack = Ack{Text: DefaultFailureText, Alert: true}
	}
	if r.opts.Answerer != nil {
		if aerr := r.opts.Answerer.AnswerCallbackQuery(ctx, cb.ID, ack.Text, ack.Alert); aerr != nil {
			logger.Warn(ctx, "tg", "callback.answer",
				slog.String("status", "fail"),
				slog.String("err", aerr.Error()),
			)
		}
	}
	return err
}
