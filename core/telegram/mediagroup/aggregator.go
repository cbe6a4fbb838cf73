// Package mediagroup debounces Telegram album messages into one batch.
package mediagroup

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/newsbot/core/logger"
	"github.com/m3rciful/newsbot/core/metrics"
)

// DefaultWindow is the quiet period after the last album message.
const DefaultWindow = 1500 * time.Millisecond

// FlushFunc receives an album ordered by message id.
type FlushFunc func(ctx context.Context, chatID int64, msgs []*tele.Message)

// Options configure an Aggregator.
type Options struct {
	Window  time.Duration
	Flush   FlushFunc
	Metrics *metrics.Metrics
	// BaseContext is the parent of every flush context.
	BaseContext context.Context
}

type group struct {
	chatID int64
	msgs   []*tele.Message
	timer  *time.Timer
	gen    uint64
}

// Aggregator buffers messages per album id and flushes each album once no
// new message arrived for Window.
type Aggregator struct {
	opts Options

	mu      sync.Mutex
	groups  map[string]*group
	stopped bool
	wg      sync.WaitGroup
}

// New returns an Aggregator; Flush must be set.
func New(opts Options) *Aggregator {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.BaseContext == nil {
		opts.BaseContext = context.Background()
	}
	return &Aggregator{opts: opts, groups: make(map[string]*group)}
}

// Add buffers msg if it belongs to an album and (re)arms the flush timer.
// It reports whether the message was taken.
func (a *Aggregator) Add(msg *tele.Message) bool {
	if msg == nil || msg.AlbumID == "" {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return false
	}

	id := msg.AlbumID
	g, ok := a.groups[id]
	if !ok {
		var chatID int64
		if msg.Chat != nil {
			chatID = msg.Chat.ID
		}
		g = &group{chatID: chatID}
		a.groups[id] = g
	}
	g.msgs = append(g.msgs, msg)
	g.gen++
	gen := g.gen
	if g.timer != nil {
		g.timer.Stop()
	}
	g.timer = time.AfterFunc(a.opts.Window, func() { a.fire(id, gen) })

	logger.Debug(a.opts.BaseContext, "media", "media_group.buffered",
		slog.String("group_id", id),
		slog.Int("count", len(g.msgs)),
	)
	return true
}

func (a *Aggregator) fire(id string, gen uint64) {
	a.mu.Lock()
	g, ok := a.groups[id]
	if a.stopped || !ok || g.gen != gen {
		a.mu.Unlock()
		return
	}
	delete(a.groups, id)
	a.wg.Add(1)
	a.mu.Unlock()
	defer a.wg.Done()

	msgs := g.msgs
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].ID < msgs[j].ID })

	ctx := logger.WithRID(a.opts.BaseContext, "mg-"+uuid.NewString()[:8])
	ctx = logger.WithUpdateMeta(ctx, 0, 0, g.chatID)
	logger.Info(ctx, "media", "media_group.flush",
		slog.String("group_id", id),
		slog.Int("count", len(msgs)),
	)
	a.opts.Metrics.ObserveMediaGroup()
	if a.opts.Flush != nil {
		a.opts.Flush(ctx, g.chatID, msgs)
	}
}

// Pending returns the number of buffered albums.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.groups)
}

// Stop cancels every pending timer, abandons buffered albums and waits for
// running flushes. It is safe to call more than once.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	a.stopped = true
	dropped := len(a.groups)
	for id, g := range a.groups {
		if g.timer != nil {
			g.timer.Stop()
		}
		delete(a.groups, id)
	}
	a.mu.Unlock()
	a.wg.Wait()
	if dropped > 0 {
		logger.Warn(a.opts.BaseContext, "media", "media_group.dropped", slog.Int("count", dropped))
	}
}
