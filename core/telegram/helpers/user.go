package helpers

import tele "gopkg.in/telebot.v4"

// Update kinds used in logs and metrics.
const (
	KindMessage  = "message"
	KindCallback = "callback"
	KindOther    = "other"
)

// Kind classifies an update.
func Kind(u *tele.Update) string {
	switch {
	case u == nil:
		return KindOther
	case u.Callback != nil:
		return KindCallback
	case u.Message != nil:
		return KindMessage
	}
	return KindOther
}

// Sender returns the user behind a message or callback update.
func Sender(u *tele.Update) *tele.User {
	switch {
	case u == nil:
		return nil
	case u.Callback != nil:
		return u.Callback.Sender
	case u.Message != nil:
		return u.Message.Sender
	}
	return nil
}

// SenderID returns the sender id or 0.
func SenderID(u *tele.Update) int64 {
	if s := Sender(u); s != nil {
		return s.ID
	}
	return 0
}

// Chat returns the chat of the update's message.
func Chat(u *tele.Update) *tele.Chat {
	switch {
	case u == nil:
		return nil
	case u.Callback != nil && u.Callback.Message != nil:
		return u.Callback.Message.Chat
	case u.Message != nil:
		return u.Message.Chat
	}
	return nil
}

// ChatID returns the chat id or 0.
func ChatID(u *tele.Update) int64 {
	if c := Chat(u); c != nil {
		return c.ID
	}
	return 0
}

// MessageText returns the text or, for media, the caption.
func MessageText(m *tele.Message) string {
	if m == nil {
		return ""
	}
	if m.Text != "" {
		return m.Text
	}
	return m.Caption
}

// LargestPhotoID returns the file id of the message photo, if any. Telegram
// delivers several sizes and telebot keeps the largest.
func LargestPhotoID(m *tele.Message) string {
	if m == nil || m.Photo == nil {
		return ""
	}
	return m.Photo.FileID
}
