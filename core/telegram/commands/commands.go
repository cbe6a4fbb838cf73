// Package commands describes slash commands for the registry.
package commands

import (
	"context"

	tele "gopkg.in/telebot.v4"
)

// Handler serves one command. args holds the text after the command name.
type Handler func(ctx context.Context, msg *tele.Message, args string) error

// Command is a registry entry. Hidden commands work but are left out of the
// menu published with setMyCommands.
type Command struct {
	Handler     Handler
	Description string
	Aliases     []string
	Hidden      bool
}
