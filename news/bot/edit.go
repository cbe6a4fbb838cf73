package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/newsbot/core/logger"
	"github.com/m3rciful/newsbot/core/telegram/helpers"
	"github.com/m3rciful/newsbot/core/telegram/state"
	"github.com/m3rciful/newsbot/news"
)

// Control tokens understood while editing.
const (
	ctlCancel = "/cancel"
	ctlClear  = "/clear"
	ctlAdd    = "/add"
	ctlDone   = "/done"
)

// InProgress reports whether userID is editing a field.
func (b *Bot) InProgress(userID int64) bool {
	_, ok := b.opts.Sessions.ActiveEditSession(userID)
	return ok
}

// HandleInput feeds msg to the user's most recently entered edit session.
func (b *Bot) HandleInput(ctx context.Context, msg *tele.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if msg.Sender == nil || msg.Chat == nil {
		return nil
	}
	userID, chatID := msg.Sender.ID, msg.Chat.ID

	sess, ok := b.opts.Sessions.ActiveEditSession(userID)
	if !ok {
		return nil
	}
	it, err := b.opts.Store.Get(ctx, sess.EntityID)
	if err != nil {
		if isNotFound(err) {
			b.opts.Sessions.ClearEditSession(userID, sess.EntityID)
			return b.reply(ctx, chatID, notFoundText(sess.EntityID), nil)
		}
		return err
	}

	text := strings.TrimSpace(msg.Text)
	if text == ctlCancel {
		b.opts.Sessions.ClearEditSession(userID, sess.EntityID)
		b.dropMessage(ctx, chatID, sess.NoticeID)
		if err := b.reply(ctx, chatID, "Editing cancelled", nil); err != nil {
			return err
		}
		return b.showItem(ctx, chatID, sess.MessageID, it)
	}

	switch sess.Mode {
	case state.ModeTitle:
		return b.inputTitle(ctx, chatID, sess, msg.Text)
	case state.ModeText:
		return b.inputText(ctx, chatID, sess, it, text)
	case state.ModeDate:
		return b.inputDate(ctx, chatID, sess, text)
	case state.ModeImages:
		return b.inputImages(ctx, chatID, sess, it, msg, text)
	}
	return nil
}

func (b *Bot) inputTitle(ctx context.Context, chatID int64, sess state.EditSession, raw string) error {
	if strings.TrimSpace(raw) == "" {
		return b.notice(ctx, chatID, sess, emojiInfo+" Send the new title as text")
	}
	b.opts.Sessions.UpdateEditSession(sess.UserID, sess.EntityID, func(s *state.EditSession) {
		s.Temp.Title = raw
	})
	return b.notice(ctx, chatID, sess, emojiSuccess+" Title staged. Press \"Save\".")
}

func (b *Bot) inputText(ctx context.Context, chatID int64, sess state.EditSession, it news.Item, text string) error {
	switch text {
	case "":
		return b.notice(ctx, chatID, sess, emojiInfo+" Send the new text as a message")
	case ctlClear:
		b.clearText(sess)
		return b.notice(ctx, chatID, sess, "Text cleared")
	case ctlAdd:
		b.primeAppend(sess, it)
		return b.notice(ctx, chatID, sess, "Send the text of the new paragraph:")
	}

	blocks := news.SplitParagraphs(text)
	updated, _ := b.opts.Sessions.UpdateEditSession(sess.UserID, sess.EntityID, func(s *state.EditSession) {
		if s.Temp.AppendNext {
			s.Temp.Paragraphs = append(s.Temp.Paragraphs, blocks...)
		} else {
			s.Temp.Paragraphs = blocks
		}
		s.Temp.AppendNext = false
		s.Temp.TextSet = true
	})
	return b.notice(ctx, chatID, sess, fmt.Sprintf("%s Text staged (%d paragraphs). Press \"Save\".", emojiSuccess, len(updated.Temp.Paragraphs)))
}

// primeAppend starts from the current text when nothing is staged, so /add
// extends the story instead of replacing it.
func (b *Bot) primeAppend(sess state.EditSession, it news.Item) {
	b.opts.Sessions.UpdateEditSession(sess.UserID, sess.EntityID, func(s *state.EditSession) {
		if !s.Temp.TextSet {
			s.Temp.Paragraphs = nonEmpty(it.Text.Strings())
			s.Temp.TextSet = true
		}
		s.Temp.AppendNext = true
	})
}

func (b *Bot) clearText(sess state.EditSession) {
	b.opts.Sessions.UpdateEditSession(sess.UserID, sess.EntityID, func(s *state.EditSession) {
		s.Temp.Paragraphs = nil
		s.Temp.TextSet = true
		s.Temp.AppendNext = false
	})
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

func (b *Bot) inputDate(ctx context.Context, chatID int64, sess state.EditSession, text string) error {
	if !news.ValidDate(text) {
		return b.notice(ctx, chatID, sess, emojiError+" Invalid date. Use DD.MM.YYYY")
	}
	b.opts.Sessions.UpdateEditSession(sess.UserID, sess.EntityID, func(s *state.EditSession) {
		s.Temp.Date = text
	})
	return b.notice(ctx, chatID, sess, emojiSuccess+" Date staged. Press \"Save\".")
}

// inputImages persists each photo as soon as it arrives.
func (b *Bot) inputImages(ctx context.Context, chatID int64, sess state.EditSession, it news.Item, msg *tele.Message, text string) error {
	if fileID := helpers.LargestPhotoID(msg); fileID != "" {
		name, err := b.savePhoto(ctx, fileID, msg.ID)
		if err != nil {
			logFailure(ctx, "edit.photo", err, slog.Int("news_id", it.ID))
			return b.notice(ctx, chatID, sess, emojiError+" Could not add the photo")
		}
		updated, ok, err := b.opts.Store.AppendImages(ctx, it.ID, name)
		if err != nil {
			return err
		}
		if !ok {
			b.opts.Sessions.ClearEditSession(sess.UserID, sess.EntityID)
			return b.reply(ctx, chatID, notFoundText(it.ID), nil)
		}
		logger.Info(ctx, "bot", "edit.photo_added",
			slog.Int("news_id", it.ID),
			slog.Int("images", len(updated.Image)),
		)
		caption := fmt.Sprintf("%s Photo added (%d total)", emojiSuccess, len(updated.Image))
		return b.swapNotice(ctx, chatID, sess, func() (*tele.Message, error) {
			return b.opts.API.SendPhoto(ctx, chatID, fileID, caption)
		})
	}

	switch text {
	case ctlClear:
		if _, _, err := b.opts.Store.ClearImages(ctx, it.ID); err != nil {
			return err
		}
		return b.notice(ctx, chatID, sess, emojiSuccess+" All photos removed.")
	case ctlDone:
		b.opts.Sessions.ClearEditSession(sess.UserID, sess.EntityID)
		b.dropMessage(ctx, chatID, sess.NoticeID)
		if err := b.reply(ctx, chatID, emojiSuccess+" Photo editing finished.", nil); err != nil {
			return err
		}
		cur, err := b.opts.Store.Get(ctx, it.ID)
		if err != nil {
			return err
		}
		return b.showItem(ctx, chatID, sess.MessageID, cur)
	}
	return b.notice(ctx, chatID, sess, emojiInfo+" Send a photo, /clear to remove all photos or /done to finish.")
}

// startEdit enters mode for id and turns messageID into the edit prompt.
func (b *Bot) startEdit(ctx context.Context, userID, chatID int64, messageID, id int, mode state.Mode) error {
	it, err := b.opts.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	b.opts.Sessions.StartEdit(userID, id, mode, messageID)
	logger.Info(ctx, "bot", "edit.start",
		slog.Int("news_id", id),
		slog.String("mode", string(mode)),
	)
	text, markup := editPrompt(it, mode)
	return b.render(ctx, chatID, messageID, text, markup)
}

// saveEdit persists the staged value. The returned ack text is empty on
// success; a non-empty one means nothing was saved.
func (b *Bot) saveEdit(ctx context.Context, userID, chatID int64, messageID, id int) (string, error) {
	sess, ok := b.opts.Sessions.LookupEditSession(userID, id)
	if !ok || !sess.Active() {
		return "Nothing to save", nil
	}
	if messageID == 0 {
		messageID = sess.MessageID
	}

	var (
		it    news.Item
		found bool
		err   error
	)
	switch sess.Mode {
	case state.ModeImages:
		// Photos are stored as they arrive; saving just ends the session.
		it, err = b.opts.Store.Get(ctx, id)
		found = err == nil
		if isNotFound(err) {
			err = nil
		}
	case state.ModeTitle:
		if sess.Empty() {
			return "Title cannot be empty", nil
		}
		it, found, err = b.opts.Store.SetTitle(ctx, id, sess.Temp.Title)
	case state.ModeText:
		if sess.Empty() {
			return "Text cannot be empty", nil
		}
		it, found, err = b.opts.Store.SetText(ctx, id, news.Plain(nonEmpty(sess.Temp.Paragraphs)...))
	case state.ModeDate:
		if sess.Empty() {
			return "Date is not set", nil
		}
		it, found, err = b.opts.Store.SetDate(ctx, id, sess.Temp.Date)
	}
	if err != nil {
		return "", err
	}
	b.opts.Sessions.ClearEditSession(userID, id)
	b.dropMessage(ctx, chatID, sess.NoticeID)
	if !found {
		return fmt.Sprintf("News #%d not found", id), nil
	}
	logger.Info(ctx, "bot", "edit.saved",
		slog.Int("news_id", id),
		slog.String("mode", string(sess.Mode)),
	)
	return "", b.showItem(ctx, chatID, messageID, it)
}

// cancelEdit discards the session and re-renders the item unchanged.
func (b *Bot) cancelEdit(ctx context.Context, userID, chatID int64, messageID, id int) error {
	if sess, ok := b.opts.Sessions.LookupEditSession(userID, id); ok {
		if messageID == 0 {
			messageID = sess.MessageID
		}
		b.dropMessage(ctx, chatID, sess.NoticeID)
	}
	b.opts.Sessions.ClearEditSession(userID, id)
	it, err := b.opts.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	return b.showItem(ctx, chatID, messageID, it)
}

func (b *Bot) showItem(ctx context.Context, chatID int64, messageID int, it news.Item) error {
	text, markup := itemView(it)
	return b.render(ctx, chatID, messageID, text, markup)
}

// notice replies inside an edit session. Each notice replaces the previous
// one so the chat keeps only the latest hint.
func (b *Bot) notice(ctx context.Context, chatID int64, sess state.EditSession, text string) error {
	return b.swapNotice(ctx, chatID, sess, func() (*tele.Message, error) {
		return b.opts.API.SendMessage(ctx, chatID, text)
	})
}

func (b *Bot) swapNotice(ctx context.Context, chatID int64, sess state.EditSession, send func() (*tele.Message, error)) error {
	msg, err := send()
	if err != nil {
		return err
	}
	if msg == nil {
		return nil
	}
	prev := 0
	b.opts.Sessions.UpdateEditSession(sess.UserID, sess.EntityID, func(s *state.EditSession) {
		prev, s.NoticeID = s.NoticeID, msg.ID
	})
	b.dropMessage(ctx, chatID, prev)
	return nil
}

// dropMessage deletes a bot message; failures are only logged.
func (b *Bot) dropMessage(ctx context.Context, chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if err := b.opts.API.DeleteMessage(ctx, chatID, messageID); err != nil {
		logFailure(ctx, "notice.delete", err, slog.Int("message_id", messageID))
	}
}
