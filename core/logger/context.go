package logger

import (
	"context"
	"strconv"
)

type metaKey struct{}

// meta is the correlation data attached to every record logged with ctx.
type meta struct {
	rid      string
	updateID int
	userID   int64
	chatID   int64
	handler  string
}

func metaFrom(ctx context.Context) meta {
	if ctx == nil {
		return meta{}
	}
	m, _ := ctx.Value(metaKey{}).(meta)
	return m
}

func withMeta(ctx context.Context, fn func(*meta)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	m := metaFrom(ctx)
	fn(&m)
	return context.WithValue(ctx, metaKey{}, m)
}

// WithRID sets the correlation id logged as rid.
func WithRID(ctx context.Context, rid string) context.Context {
	return withMeta(ctx, func(m *meta) { m.rid = rid })
}

// RIDFrom returns the correlation id stored in ctx.
func RIDFrom(ctx context.Context) string {
	return metaFrom(ctx).rid
}

// WithUpdateMeta records the update, user and chat ids of the update being handled.
func WithUpdateMeta(ctx context.Context, updateID int, userID, chatID int64) context.Context {
	return withMeta(ctx, func(m *meta) {
		m.updateID = updateID
		m.userID = userID
		m.chatID = chatID
	})
}

// UpdateIDFrom returns the update id stored in ctx.
func UpdateIDFrom(ctx context.Context) int {
	return metaFrom(ctx).updateID
}

// WithHandler names the handler serving the update.
func WithHandler(ctx context.Context, handler string) context.Context {
	if handler == "" {
		if ctx == nil {
			return context.Background()
		}
		return ctx
	}
	return withMeta(ctx, func(m *meta) { m.handler = handler })
}

// BuildRID derives a short correlation id from the update coordinates.
// Each part is rendered in base36 and joined with dots.
func BuildRID(updateID int, chatID, userID int64) string {
	buf := make([]byte, 0, 24)
	buf = strconv.AppendInt(buf, int64(updateID), 36)
	buf = append(buf, '.')
	buf = strconv.AppendInt(buf, chatID, 36)
	buf = append(buf, '.')
	buf = strconv.AppendInt(buf, userID, 36)
	return string(buf)
}

// fields appends the non-zero correlation values of m to e unless the record
// already set them.
func (m meta) fields(e entry) {
	if m.rid != "" {
		e.setDefault("rid", m.rid)
	}
	if m.updateID != 0 {
		e.setDefault("update_id", int64(m.updateID))
	}
	if m.userID != 0 {
		e.setDefault("user_id", m.userID)
	}
	if m.chatID != 0 {
		e.setDefault("chat_id", m.chatID)
	}
	if m.handler != "" {
		e.setDefault("handler", m.handler)
	}
}
