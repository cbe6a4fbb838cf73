// Package keyboard builds inline keyboards whose buttons carry raw callback
// tokens. telebot's unique-prefix encoding is bypassed so the dispatcher can
// parse the tokens itself.
package keyboard

import tele "gopkg.in/telebot.v4"

// Button is one inline keyboard button.
type Button = tele.InlineButton

// Data returns a callback button sending token when pressed.
func Data(text, token string) Button {
	return Button{Text: text, Data: token}
}

// Link returns a button opening url.
func Link(text, url string) Button {
	return Button{Text: text, URL: url}
}

// Rows lays out one keyboard row per argument. Empty rows are dropped.
func Rows(rows ...[]Button) *tele.ReplyMarkup {
	kb := make([][]Button, 0, len(rows))
	for _, row := range rows {
		if len(row) > 0 {
			kb = append(kb, append([]Button(nil), row...))
		}
	}
	return &tele.ReplyMarkup{InlineKeyboard: kb}
}

// Grid wraps buttons into rows of perRow. perRow below 1 means one per row.
func Grid(perRow int, buttons ...Button) *tele.ReplyMarkup {
	perRow = max(perRow, 1)
	rows := make([][]Button, 0, (len(buttons)+perRow-1)/perRow)
	for len(buttons) > 0 {
		n := min(perRow, len(buttons))
		rows = append(rows, buttons[:n])
		buttons = buttons[n:]
	}
	return Rows(rows...)
}
