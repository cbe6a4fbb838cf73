// Package callbacks builds and splits underscore-separated callback tokens
// such as "view_12" or "page_2_published".
package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Sep separates token parts.
const Sep = "_"

// MaxDataLen is the Bot API limit for callback_data.
const MaxDataLen = 64

// ParseCallbackData parses Telebot's \f<unique>|<payload> encoding.
// Returns unique and payload (may be empty).
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	raw := strings.TrimPrefix(cb.Data, "\f")
	parts := strings.SplitN(raw, "|", 2)
	unique := strings.TrimSpace(parts[0])
	payload := ""
	if len(parts) == 2 {
		payload = parts[1]
	}
	return unique, payload
}

// Data returns the raw token of cb with any Telebot unique prefix folded in.
func Data(cb *tele.Callback) string {
	if cb == nil {
		return ""
	}
	unique, payload := ParseCallbackData(cb)
	if cb.Unique != "" {
		unique = cb.Unique
	}
	if payload == "" {
		return unique
	}
	if unique == "" {
		return payload
	}
	return unique + Sep + payload
}

// Token joins parts into a callback token.
func Token(parts ...string) string {
	return strings.Join(parts, Sep)
}

// TrimPrefix returns the remainder of data after "<prefix>_".
func TrimPrefix(data, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(data, prefix+Sep)
	if !ok || rest == "" {
		return "", false
	}
	return rest, true
}
