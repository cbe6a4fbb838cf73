// Package bot is the operator-facing dispatcher: commands, callbacks, the
// editing state machine and draft creation on top of the news store.
package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/newsbot/core/logger"
	"github.com/m3rciful/newsbot/core/metrics"
	"github.com/m3rciful/newsbot/core/telegram"
	"github.com/m3rciful/newsbot/core/telegram/api"
	"github.com/m3rciful/newsbot/core/telegram/mediagroup"
	"github.com/m3rciful/newsbot/core/telegram/router"
	"github.com/m3rciful/newsbot/core/telegram/state"
	"github.com/m3rciful/newsbot/news/store"
)

// DefaultPerPage is the listing page size.
const DefaultPerPage = 5

// API is the chat transport used by the dispatcher. *api.Client satisfies it.
type API interface {
	SendMessage(ctx context.Context, chatID int64, text string, opts ...api.Options) (*tele.Message, error)
	EditMessageText(ctx context.Context, chatID int64, messageID int, text string, opts ...api.Options) (*tele.Message, error)
	SendPhoto(ctx context.Context, chatID int64, photo, caption string, opts ...api.Options) (*tele.Message, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	AnswerCallbackQuery(ctx context.Context, callbackID, text string, alert bool) error
	GetFile(ctx context.Context, fileID string) (*tele.File, error)
	DownloadFile(ctx context.Context, filePath string, w io.Writer) (int64, error)
}

// Options wire a Bot.
type Options struct {
	API       API
	Store     *store.Store
	Sessions  state.Manager
	PhotosDir string
	PerPage   int
	Location  *time.Location
	Metrics   *metrics.Metrics
	// AlbumWindow overrides mediagroup.DefaultWindow.
	AlbumWindow time.Duration
	Now         func() time.Time
}

// Bot handles updates for the operators. Handlers are serialized by mu so
// album flushes never interleave with the poll loop.
type Bot struct {
	opts   Options
	mu     sync.Mutex
	albums *mediagroup.Aggregator
}

// New returns a Bot with its album aggregator.
func New(opts Options) *Bot {
	if opts.Sessions == nil {
		opts.Sessions = state.NewMemoryManager()
	}
	if opts.PerPage <= 0 {
		opts.PerPage = DefaultPerPage
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	b := &Bot{opts: opts}
	b.albums = mediagroup.New(mediagroup.Options{
		Window:  opts.AlbumWindow,
		Flush:   b.flushAlbum,
		Metrics: opts.Metrics,
	})
	return b
}

// Stop cancels pending album flushes and waits for a running one.
func (b *Bot) Stop() {
	b.albums.Stop()
}

// Router builds the update router around the bot and registers its commands
// on reg.
func (b *Bot) Router(reg *telegram.Registry) *router.Router {
	b.Register(reg)
	return router.New(router.Options{
		Registry:       reg,
		FSM:            b,
		Callback:       b.HandleCallback,
		Fallback:       b.HandleMessage,
		UnknownCommand: b.UnknownCommand,
		Answerer:       b.opts.API,
		Metrics:        b.opts.Metrics,
	})
}

func (b *Bot) now() time.Time {
	return b.opts.Now().In(b.opts.Location)
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string, markup *tele.ReplyMarkup) error {
	_, err := b.opts.API.SendMessage(ctx, chatID, text, withMarkup(markup))
	return err
}

// render replaces messageID with the view, or sends a new message when there
// is no message to edit.
func (b *Bot) render(ctx context.Context, chatID int64, messageID int, text string, markup *tele.ReplyMarkup) error {
	if messageID == 0 {
		return b.reply(ctx, chatID, text, markup)
	}
	_, err := b.opts.API.EditMessageText(ctx, chatID, messageID, text, withMarkup(markup))
	return err
}

func withMarkup(markup *tele.ReplyMarkup) api.Options {
	if markup == nil {
		return nil
	}
	return api.Options{"reply_markup": markup}
}

// logFailure records a handler failure that was already reported to the
// operator.
func logFailure(ctx context.Context, event string, err error, attrs ...slog.Attr) {
	attrs = append([]slog.Attr{
		slog.String("status", "fail"),
		slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
	}, attrs...)
	logger.Error(ctx, "bot", event, attrs...)
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
