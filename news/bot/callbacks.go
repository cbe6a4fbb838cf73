package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/newsbot/core/logger"
	"github.com/m3rciful/newsbot/core/telegram/api"
	"github.com/m3rciful/newsbot/core/telegram/callbacks"
	"github.com/m3rciful/newsbot/core/telegram/router"
	"github.com/m3rciful/newsbot/core/telegram/state"
	"github.com/m3rciful/newsbot/news"
	"github.com/m3rciful/newsbot/news/store"
)

// HandleCallback executes a button press and returns its acknowledgement.
// The router answers the callback.
func (b *Bot) HandleCallback(ctx context.Context, cb *tele.Callback) (router.Ack, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cb.Sender != nil {
		b.takePrompt(cb.Sender.ID)
	}

	act, err := ParseAction(callbacks.Data(cb))
	if err != nil {
		logger.Warn(ctx, "bot", "callback.unknown",
			slog.String("cb_key", logger.SanitizeLimit(callbacks.Data(cb), 64)),
		)
		return router.Ack{Text: "Unknown action"}, nil
	}
	if cb.Sender == nil || cb.Message == nil || cb.Message.Chat == nil {
		return router.Ack{}, nil
	}
	c := callCtx{userID: cb.Sender.ID, chatID: cb.Message.Chat.ID, messageID: cb.Message.ID}

	ack, err := b.dispatch(ctx, c, act)
	if err == nil {
		return ack, nil
	}
	if isNotFound(err) {
		return router.Ack{Text: fmt.Sprintf("News #%d not found", act.ID), Alert: true}, nil
	}
	var te *api.TransportError
	if errors.As(err, &te) {
		return router.Ack{Text: "Telegram error: " + te.Description, Alert: true}, err
	}
	return router.Ack{Text: "Error: " + err.Error(), Alert: true}, err
}

type callCtx struct {
	userID    int64
	chatID    int64
	messageID int
}

func (b *Bot) dispatch(ctx context.Context, c callCtx, act Action) (router.Ack, error) {
	switch act.Kind {
	case KindNoop:
		return router.Ack{}, nil
	case KindMenu:
		return router.Ack{}, b.openMenu(ctx, c, act.Menu)
	case KindFilter:
		b.setListing(c.userID, act.Filter, 1)
		return router.Ack{Text: "Filter: " + string(act.Filter)}, b.showList(ctx, c.chatID, c.messageID, act.Filter, 1)
	case KindPage:
		b.setListing(c.userID, act.Filter, act.Page)
		return router.Ack{Text: fmt.Sprintf("Page %d", act.Page)}, b.showList(ctx, c.chatID, c.messageID, act.Filter, act.Page)
	case KindView:
		it, err := b.opts.Store.Get(ctx, act.ID)
		if err != nil {
			return router.Ack{}, err
		}
		return router.Ack{}, b.showItem(ctx, c.chatID, c.messageID, it)
	case KindBackToList:
		us := b.opts.Sessions.UserSession(c.userID)
		filter, ok := news.ParseFilter(us.CurrentFilter)
		if !ok {
			filter = news.FilterAll
		}
		return router.Ack{}, b.showList(ctx, c.chatID, c.messageID, filter, us.CurrentPage)
	case KindPublish, KindUnpublish, KindMain, KindDelete, KindRestore:
		return b.transition(ctx, c, act)
	case KindEdit:
		if err := b.startEdit(ctx, c.userID, c.chatID, c.messageID, act.ID, act.Mode); err != nil {
			return router.Ack{}, err
		}
		return router.Ack{Text: "Editing " + string(act.Mode)}, nil
	case KindSave:
		reason, err := b.saveEdit(ctx, c.userID, c.chatID, c.messageID, act.ID)
		if err != nil {
			return router.Ack{}, err
		}
		if reason != "" {
			return router.Ack{Text: reason, Alert: true}, nil
		}
		return router.Ack{Text: emojiSuccess + " Saved!"}, nil
	case KindCancel:
		return router.Ack{Text: "Editing cancelled"}, b.cancelEdit(ctx, c.userID, c.chatID, c.messageID, act.ID)
	case KindAddParagraph, KindClearText:
		return b.textControl(ctx, c, act)
	}
	return router.Ack{Text: "Unknown action"}, nil
}

func (b *Bot) openMenu(ctx context.Context, c callCtx, menu string) error {
	switch menu {
	case MenuList:
		b.setListing(c.userID, news.FilterAll, 1)
		return b.showList(ctx, c.chatID, c.messageID, news.FilterAll, 1)
	case MenuSearch:
		b.opts.Sessions.UpdateUserSession(c.userID, func(s *state.UserSession) {
			s.LastCommand = lastCommandSearch
		})
		return b.render(ctx, c.chatID, c.messageID, emojiSearch+" Send a search query:", backToMenu())
	case MenuStats:
		return b.showStats(ctx, c.chatID, c.messageID)
	case MenuHelp:
		text, markup := helpView()
		return b.render(ctx, c.chatID, c.messageID, text, markup)
	}
	text, markup := mainMenuView()
	return b.render(ctx, c.chatID, c.messageID, text, markup)
}

func (b *Bot) transition(ctx context.Context, c callCtx, act Action) (router.Ack, error) {
	var (
		it    news.Item
		found bool
		err   error
		ack   string
	)
	switch act.Kind {
	case KindPublish:
		it, found, err = b.opts.Store.Publish(ctx, act.ID)
		ack = emojiPublish + " Published"
	case KindUnpublish:
		it, found, err = b.opts.Store.Unpublish(ctx, act.ID)
		ack = emojiDraft + " Moved to drafts"
	case KindDelete:
		it, found, err = b.opts.Store.Delete(ctx, act.ID)
		ack = emojiDelete + " Deleted"
	case KindRestore:
		it, found, err = b.opts.Store.Restore(ctx, act.ID)
		ack = emojiSave + " Restored"
	case KindMain:
		var cur news.Item
		if cur, err = b.opts.Store.Get(ctx, act.ID); err != nil {
			return router.Ack{}, err
		}
		it, found, err = b.opts.Store.SetMain(ctx, act.ID, !cur.ShowOnMain)
		ack = emojiMain + " Removed from main"
		if it.ShowOnMain {
			ack = emojiMain + " On main"
		}
	}
	if err != nil {
		return router.Ack{}, err
	}
	if !found {
		return router.Ack{}, fmt.Errorf("%w: #%d", store.ErrNotFound, act.ID)
	}
	logger.Info(ctx, "bot", "news.transition",
		slog.Int("news_id", it.ID),
		slog.String("status", string(it.Status)),
		slog.Bool("show_on_main", it.ShowOnMain),
	)
	return router.Ack{Text: ack}, b.showItem(ctx, c.chatID, c.messageID, it)
}

// textControl mirrors /add and /clear for the TEXT session of act.ID.
func (b *Bot) textControl(ctx context.Context, c callCtx, act Action) (router.Ack, error) {
	sess, ok := b.opts.Sessions.LookupEditSession(c.userID, act.ID)
	if !ok || sess.Mode != state.ModeText {
		return router.Ack{Text: "Start editing the text first", Alert: true}, nil
	}
	if act.Kind == KindClearText {
		b.clearText(sess)
		return router.Ack{Text: "Text cleared"}, nil
	}
	it, err := b.opts.Store.Get(ctx, act.ID)
	if err != nil {
		return router.Ack{}, err
	}
	b.primeAppend(sess, it)
	return router.Ack{Text: "Send the new paragraph"}, b.notice(ctx, c.chatID, sess, "Send the text of the new paragraph:")
}
