package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/newsbot/core/logger"
)

func msgUpdate(id int, userID int64) *tele.Update {
	return &tele.Update{ID: id, Message: &tele.Message{
		ID:     id,
		Text:   "hi",
		Sender: &tele.User{ID: userID},
		Chat:   &tele.Chat{ID: userID},
	}}
}

func cbUpdate(id int, userID int64) *tele.Update {
	return &tele.Update{ID: id, Callback: &tele.Callback{
		ID:     "cb",
		Data:   "noop",
		Sender: &tele.User{ID: userID},
	}}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) Func {
		return func(next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, u *tele.Update) error {
				order = append(order, name)
				return next(ctx, u)
			}
		}
	}
	h := Chain(func(context.Context, *tele.Update) error {
		order = append(order, "handler")
		return nil
	}, mw("a"), nil, mw("b"))

	if err := h(context.Background(), msgUpdate(1, 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"a", "b", "handler"}
	if len(order) != len(want) {
		t.Fatalf("unexpected order %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("unexpected order %v", order)
		}
	}
}

func TestRecoverSwallowsPanic(t *testing.T) {
	h := Recover(func(context.Context, *tele.Update) error { panic("boom") })
	if err := h(context.Background(), msgUpdate(1, 1)); err != nil {
		t.Fatalf("expected nil after recovered panic, got %v", err)
	}
}

func TestAccessDropsUnknownUsers(t *testing.T) {
	calls := 0
	h := Access(AllowList([]int64{42}))(func(context.Context, *tele.Update) error {
		calls++
		return nil
	})
	ctx := context.Background()

	for _, u := range []*tele.Update{msgUpdate(1, 7), cbUpdate(2, 7), {ID: 3}} {
		if err := h(ctx, u); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 0 {
		t.Fatalf("unauthorized updates must be dropped, got %d calls", calls)
	}

	if err := h(ctx, msgUpdate(4, 42)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := h(ctx, cbUpdate(5, 42)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 authorized calls, got %d", calls)
	}
}

func TestLoggerAttachesRID(t *testing.T) {
	var rid string
	var updateID int
	h := Logger(func(ctx context.Context, u *tele.Update) error {
		rid = logger.RIDFrom(ctx)
		updateID = logger.UpdateIDFrom(ctx)
		return nil
	})
	if err := h(context.Background(), msgUpdate(9, 5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rid == "" || updateID != 9 {
		t.Fatalf("expected rid and update id, got %q %d", rid, updateID)
	}
}

func TestRateLimit(t *testing.T) {
	now := time.Unix(1000, 0)
	limited := 0
	calls := 0
	h := RateLimit(RateLimitOptions{
		Interval: time.Second,
		Exclude:  map[string]struct{}{"callback": {}},
		OnLimited: func(context.Context, *tele.Update) error {
			limited++
			return nil
		},
		Now: func() time.Time { return now },
	})(func(context.Context, *tele.Update) error {
		calls++
		return nil
	})
	ctx := context.Background()

	_ = h(ctx, msgUpdate(1, 1))
	_ = h(ctx, msgUpdate(2, 1))
	_ = h(ctx, cbUpdate(3, 1))
	_ = h(ctx, msgUpdate(4, 2))
	now = now.Add(2 * time.Second)
	_ = h(ctx, msgUpdate(5, 1))

	if calls != 4 || limited != 1 {
		t.Fatalf("expected 4 calls and 1 limited, got %d and %d", calls, limited)
	}
}

func albumUpdate(id int, userID int64, album string) *tele.Update {
	u := msgUpdate(id, userID)
	u.Message.Text = ""
	u.Message.AlbumID = album
	u.Message.Photo = &tele.Photo{File: tele.File{FileID: "p"}}
	return u
}

func TestRateLimitCountsAlbumOnce(t *testing.T) {
	now := time.Unix(1000, 0)
	limited := 0
	var seen []int
	h := RateLimit(RateLimitOptions{
		Interval: 500 * time.Millisecond,
		OnLimited: func(context.Context, *tele.Update) error {
			limited++
			return nil
		},
		Now: func() time.Time { return now },
	})(func(_ context.Context, u *tele.Update) error {
		seen = append(seen, u.ID)
		return nil
	})
	ctx := context.Background()

	for id := 1; id <= 3; id++ {
		_ = h(ctx, albumUpdate(id, 1, "g1"))
	}
	if len(seen) != 3 || limited != 0 {
		t.Fatalf("album parts reaching handler: %v, limited %d", seen, limited)
	}

	// A second album inside the window is dropped as a whole.
	_ = h(ctx, albumUpdate(4, 1, "g2"))
	now = now.Add(time.Second)
	_ = h(ctx, albumUpdate(5, 1, "g2"))
	if len(seen) != 3 || limited != 1 {
		t.Fatalf("expected g2 dropped with one notice, got %v and %d", seen, limited)
	}

	_ = h(ctx, msgUpdate(6, 1))
	if len(seen) != 4 || seen[3] != 6 {
		t.Fatalf("expected plain message after the window, got %v", seen)
	}
}

func TestMetricsPassesErrorThrough(t *testing.T) {
	want := errors.New("fail")
	h := Metrics(nil)(func(context.Context, *tele.Update) error { return want })
	if err := h(context.Background(), msgUpdate(1, 1)); !errors.Is(err, want) {
		t.Fatalf("expected error passthrough, got %v", err)
	}
}
