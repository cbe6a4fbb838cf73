package state

import "strings"

// Mode is the field an edit session is collecting.
type Mode string

const (
	ModeNone   Mode = ""
	ModeTitle  Mode = "title"
	ModeText   Mode = "text"
	ModeDate   Mode = "date"
	ModeImages Mode = "images"
)

// Modes lists the editable fields in menu order.
var Modes = []Mode{ModeTitle, ModeText, ModeDate, ModeImages}

// ParseMode accepts a mode name case-insensitively.
func ParseMode(raw string) (Mode, bool) {
	m := Mode(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Modes {
		if m == known {
			return m, true
		}
	}
	return ModeNone, false
}

// UserSession is the list navigation state of one user.
type UserSession struct {
	CurrentPage   int
	CurrentFilter string
	LastMessageID int
	// LastCommand records a pending prompt such as "search".
	LastCommand string
}

// TempData holds staged values until save.
type TempData struct {
	Title      string
	Paragraphs []string
	// TextSet distinguishes a staged empty text from no input.
	TextSet bool
	// AppendNext makes the next TEXT input extend Paragraphs.
	AppendNext bool
	Date       string
}

func (t TempData) clone() TempData {
	out := t
	out.Paragraphs = append([]string(nil), t.Paragraphs...)
	return out
}

// EditSession is the editing state of one user for one entity.
type EditSession struct {
	UserID    int64
	EntityID  int
	Mode      Mode
	Temp      TempData
	MessageID int
	// NoticeID is the latest bot notice sent during the session.
	NoticeID int

	seq uint64
}

// Active reports whether a field is being edited.
func (s EditSession) Active() bool { return s.Mode != ModeNone }

// Empty reports whether the staged value for the current mode is missing.
func (s EditSession) Empty() bool {
	switch s.Mode {
	case ModeTitle:
		return strings.TrimSpace(s.Temp.Title) == ""
	case ModeText:
		if !s.Temp.TextSet {
			return true
		}
		for _, p := range s.Temp.Paragraphs {
			if strings.TrimSpace(p) != "" {
				return false
			}
		}
		return true
	case ModeDate:
		return s.Temp.Date == ""
	}
	return true
}

func (s EditSession) clone() EditSession {
	out := s
	out.Temp = s.Temp.clone()
	return out
}

// Manager owns session lifetimes. Getters return copies; changes go through
// the Update methods.
type Manager interface {
	UserSession(userID int64) UserSession
	UpdateUserSession(userID int64, fn func(*UserSession)) UserSession

	EditSession(userID int64, entityID int) EditSession
	LookupEditSession(userID int64, entityID int) (EditSession, bool)
	StartEdit(userID int64, entityID int, mode Mode, messageID int) EditSession
	UpdateEditSession(userID int64, entityID int, fn func(*EditSession)) (EditSession, bool)
	ActiveEditSession(userID int64) (EditSession, bool)
	ClearEditSession(userID int64, entityID int)

	ClearUser(userID int64)
}
