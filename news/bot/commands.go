package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/newsbot/core/logger"
	"github.com/m3rciful/newsbot/core/telegram"
	"github.com/m3rciful/newsbot/core/telegram/commands"
	"github.com/m3rciful/newsbot/core/telegram/helpers"
	"github.com/m3rciful/newsbot/core/telegram/state"
	"github.com/m3rciful/newsbot/news"
)

// lastCommandSearch marks that the next plain text is a search query.
const lastCommandSearch = "search"

// Register adds the operator commands to reg.
func (b *Bot) Register(reg *telegram.Registry) {
	reg.RegisterCommand("/start", commands.Command{Handler: b.command(b.cmdMenu), Description: "Main menu", Hidden: true})
	reg.RegisterCommand("/menu", commands.Command{Handler: b.command(b.cmdMenu), Description: "Main menu"})
	reg.RegisterCommand("/list", commands.Command{Handler: b.command(b.cmdList), Description: "List stories [filter]"})
	reg.RegisterCommand("/show", commands.Command{Handler: b.command(b.cmdShow), Description: "Show a story by id"})
	reg.RegisterCommand("/search", commands.Command{Handler: b.command(b.cmdSearch), Description: "Search stories"})
	reg.RegisterCommand("/stats", commands.Command{Handler: b.command(b.cmdStats), Description: "Statistics"})
	reg.RegisterCommand("/help", commands.Command{Handler: b.command(b.cmdHelp), Description: "Help"})
	reg.RegisterCommand("/cancel", commands.Command{Handler: b.command(b.cmdCancel), Description: "Cancel editing", Hidden: true})
}

// command drops any pending prompt before h runs, so a prompt only applies
// to the update that directly follows it.
func (b *Bot) command(h commands.Handler) commands.Handler {
	return func(ctx context.Context, msg *tele.Message, args string) error {
		b.takePrompt(senderOf(msg))
		return h(ctx, msg, args)
	}
}

// takePrompt clears the pending prompt of userID and returns it.
func (b *Bot) takePrompt(userID int64) string {
	var prompt string
	b.opts.Sessions.UpdateUserSession(userID, func(s *state.UserSession) {
		prompt, s.LastCommand = s.LastCommand, ""
	})
	return prompt
}

func chatOf(msg *tele.Message) int64 {
	if msg.Chat == nil {
		return 0
	}
	return msg.Chat.ID
}

func senderOf(msg *tele.Message) int64 {
	if msg.Sender == nil {
		return 0
	}
	return msg.Sender.ID
}

func (b *Bot) cmdMenu(ctx context.Context, msg *tele.Message, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	text, markup := mainMenuView()
	return b.reply(ctx, chatOf(msg), text, markup)
}

func (b *Bot) cmdHelp(ctx context.Context, msg *tele.Message, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	text, markup := helpView()
	return b.reply(ctx, chatOf(msg), text, markup)
}

func (b *Bot) cmdList(ctx context.Context, msg *tele.Message, args string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	filter := news.FilterAll
	if args = strings.TrimSpace(args); args != "" {
		f, ok := news.ParseFilter(args)
		if !ok {
			return b.reply(ctx, chatOf(msg), emojiWarning+" Unknown filter. Use: all, published, draft, main, deleted", nil)
		}
		filter = f
	}
	b.setListing(senderOf(msg), filter, 1)
	return b.showList(ctx, chatOf(msg), 0, filter, 1)
}

func (b *Bot) cmdShow(ctx context.Context, msg *tele.Message, args string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || id <= 0 {
		return b.reply(ctx, chatOf(msg), "Usage: /show <id>", nil)
	}
	it, err := b.opts.Store.Get(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return b.reply(ctx, chatOf(msg), notFoundText(id), nil)
		}
		return err
	}
	return b.showItem(ctx, chatOf(msg), 0, it)
}

func (b *Bot) cmdSearch(ctx context.Context, msg *tele.Message, args string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if strings.TrimSpace(args) == "" {
		b.opts.Sessions.UpdateUserSession(senderOf(msg), func(s *state.UserSession) {
			s.LastCommand = lastCommandSearch
		})
		return b.reply(ctx, chatOf(msg), emojiSearch+" Send a search query:", backToMenu())
	}
	return b.search(ctx, chatOf(msg), args)
}

func (b *Bot) cmdStats(ctx context.Context, msg *tele.Message, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.showStats(ctx, chatOf(msg), 0)
}

// cmdCancel only runs outside an edit session; inside one the state machine
// handles /cancel.
func (b *Bot) cmdCancel(ctx context.Context, msg *tele.Message, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reply(ctx, chatOf(msg), "Nothing to cancel", nil)
}

// UnknownCommand reports a command that is not registered.
func (b *Bot) UnknownCommand(ctx context.Context, msg *tele.Message, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.takePrompt(senderOf(msg))
	return b.reply(ctx, chatOf(msg), emojiWarning+" Unknown command. Use /help", nil)
}

// HandleMessage handles non-command messages: album parts are buffered,
// a pending search consumes the text, anything else becomes a draft.
func (b *Bot) HandleMessage(ctx context.Context, msg *tele.Message) error {
	if msg.AlbumID != "" && helpers.LargestPhotoID(msg) != "" {
		b.albums.Add(msg)
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	userID, chatID := senderOf(msg), chatOf(msg)

	if b.takePrompt(userID) == lastCommandSearch && msg.Text != "" {
		return b.search(ctx, chatID, msg.Text)
	}
	if helpers.MessageText(msg) == "" && helpers.LargestPhotoID(msg) == "" {
		logger.Debug(ctx, "bot", "message.ignored", slog.String("reason", "unsupported"))
		return nil
	}
	return b.createDraft(ctx, chatID, []*tele.Message{msg})
}

func (b *Bot) setListing(userID int64, filter news.Filter, page int) {
	b.opts.Sessions.UpdateUserSession(userID, func(s *state.UserSession) {
		s.CurrentFilter = string(filter)
		s.CurrentPage = page
	})
}

// showList renders page of filter, clamping pages past the end to the last.
func (b *Bot) showList(ctx context.Context, chatID int64, messageID int, filter news.Filter, page int) error {
	p, err := b.opts.Store.List(ctx, filter, page, b.opts.PerPage)
	if err != nil {
		return err
	}
	if p.Pages > 0 && p.Page > p.Pages {
		if p, err = b.opts.Store.List(ctx, filter, p.Pages, b.opts.PerPage); err != nil {
			return err
		}
	}
	logger.Debug(ctx, "bot", "list.render",
		slog.String("filter", string(filter)),
		slog.Int("page", p.Page),
		slog.Int("total", p.Total),
	)
	text, markup := listView(p, filter)
	return b.render(ctx, chatID, messageID, text, markup)
}

func (b *Bot) showStats(ctx context.Context, chatID int64, messageID int) error {
	st, err := b.opts.Store.Stats(ctx)
	if err != nil {
		return err
	}
	text, markup := b.statsView(st)
	return b.render(ctx, chatID, messageID, text, markup)
}

func (b *Bot) search(ctx context.Context, chatID int64, query string) error {
	query = strings.TrimSpace(query)
	results, err := b.opts.Store.Search(ctx, query, news.FilterAll)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	text, markup := searchView(query, results)
	return b.reply(ctx, chatID, text, markup)
}
