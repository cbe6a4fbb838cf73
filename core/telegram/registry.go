package telegram

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/newsbot/core/logger"
	"github.com/m3rciful/newsbot/core/telegram/commands"
)

// Registry maps slash commands and their aliases to handlers.
type Registry struct {
	byName  map[string]commands.Command
	aliasOf map[string]string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:  make(map[string]commands.Command),
		aliasOf: make(map[string]string),
	}
}

// RegisterCommand adds cmd under name, which must start with a slash.
// Invalid and duplicate registrations are logged and ignored.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	name = strings.ToLower(strings.TrimSpace(name))
	if reason := r.rejectReason(name, cmd); reason != "" {
		logger.Warn(context.Background(), "tg.wire", "command.rejected",
			slog.String("name", name),
			slog.String("reason", reason),
		)
		return
	}
	r.byName[name] = cmd
	for _, alias := range cmd.Aliases {
		alias = slashed(alias)
		if _, taken := r.byName[alias]; !taken {
			r.aliasOf[alias] = name
		}
	}
}

func (r *Registry) rejectReason(name string, cmd commands.Command) string {
	switch {
	case len(name) < 2 || name[0] != '/':
		return "bad_name"
	case cmd.Handler == nil:
		return "no_handler"
	case strings.TrimSpace(cmd.Description) == "":
		return "no_description"
	}
	if _, dup := r.byName[name]; dup {
		return "duplicate"
	}
	return ""
}

// ListCommands returns the menu for setMyCommands: names without the slash,
// sorted, hidden commands skipped when visibleOnly is set.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	out := make([]tele.Command, 0, len(r.byName))
	for name, cmd := range r.byName {
		if visibleOnly && cmd.Hidden {
			continue
		}
		out = append(out, tele.Command{Text: name[1:], Description: cmd.Description})
	}
	slices.SortFunc(out, func(a, b tele.Command) int { return strings.Compare(a.Text, b.Text) })
	return out
}

// LookupCommand resolves name or one of its aliases to the registered name.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	name = slashed(name)
	if canonical, ok := r.aliasOf[name]; ok {
		name = canonical
	}
	cmd, ok := r.byName[name]
	if !ok {
		return "", commands.Command{}, false
	}
	return name, cmd, true
}

func slashed(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	return name
}

// ParseCommand splits "/name@bot args" into "/name" and args. ok is false
// when text is not a command.
func ParseCommand(text string) (name, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") || len(text) == 1 {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text, " ")
	if nl := strings.IndexByte(head, '\n'); nl >= 0 {
		rest = head[nl+1:] + " " + rest
		head = head[:nl]
	}
	if at := strings.IndexByte(head, '@'); at >= 0 {
		head = head[:at]
	}
	if head == "/" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}
