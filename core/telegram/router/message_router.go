package router

import (
	"context"

	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/newsbot/core/telegram"
	tghelpers "github.com/m3rciful/newsbot/core/telegram/helpers"
)

// FSM receives every message of a user with an editing session in progress.
type FSM interface {
	InProgress(userID int64) bool
	HandleInput(ctx context.Context, msg *tele.Message) error
}

// MessageHandler handles a message.
type MessageHandler func(ctx context.Context, msg *tele.Message) error

// UnknownCommandHandler reports an unregistered command.
type UnknownCommandHandler func(ctx context.Context, msg *tele.Message, name string) error

// routeMessage sends a message to the editing session, a command, or the
// fallback, in that order.
func (r *Router) routeMessage(ctx context.Context, msg *tele.Message) error {
	if fsm := r.opts.FSM; fsm != nil && msg.Sender != nil && fsm.InProgress(msg.Sender.ID) {
		return r.run(ctx, "fsm", func(ctx context.Context) error {
			return fsm.HandleInput(ctx, msg)
		})
	}

	if name, args, ok := tg.ParseCommand(tghelpers.MessageText(msg)); ok {
		if r.opts.Registry != nil {
			if key, cmd, found := r.opts.Registry.LookupCommand(name); found && cmd.Handler != nil {
				return r.run(ctx, commandName(key), func(ctx context.Context) error {
					return cmd.Handler(ctx, msg, args)
				})
			}
		}
		if r.opts.UnknownCommand != nil {
			return r.run(ctx, "unknown_command", func(ctx context.Context) error {
				return r.opts.UnknownCommand(ctx, msg, name)
			})
		}
		r.skip(ctx, "unknown_command")
		return nil
	}

	if r.opts.Fallback != nil {
		return r.run(ctx, "fallback", func(ctx context.Context) error {
			return r.opts.Fallback(ctx, msg)
		})
	}
	r.skip(ctx, "unknown_text")
	return nil
}
