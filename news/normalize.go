package news

import (
	"regexp"
	"strings"
	"time"
)

// DateLayout is the display date format, dd.mm.yyyy.
const DateLayout = "02.01.2006"

// DefaultTitle replaces an empty title.
const DefaultTitle = "Untitled"

var dateRe = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)

// FormatDate renders t as a display date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ValidDate reports whether s is a strict dd.mm.yyyy calendar date.
func ValidDate(s string) bool {
	if !dateRe.MatchString(s) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// Normalize fills defaults so every persisted item has a title, at least one
// paragraph, a date, a known status, timestamps and a metadata map. now must
// already be in the display time zone.
func Normalize(it Item, now time.Time) Item {
	if strings.TrimSpace(it.Title) == "" {
		it.Title = DefaultTitle
	}
	if len(it.Text) == 0 {
		it.Text = Plain("")
	}
	if len(it.Image) == 0 {
		it.Image = nil
	}
	it.Date = strings.TrimSpace(it.Date)
	if it.Date == "" {
		it.Date = FormatDate(now)
	}
	if !it.Status.Valid() {
		it.Status = StatusDraft
	}
	if it.Status == StatusDeleted {
		it.ShowOnMain = false
	}
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	if it.UpdatedAt.IsZero() {
		it.UpdatedAt = it.CreatedAt
	}
	if it.Metadata == nil {
		it.Metadata = map[string]any{}
	}
	return it
}

// SplitParagraphs splits free text on blank lines, dropping empty blocks.
func SplitParagraphs(text string) []string {
	blocks := blankLineRe.Split(strings.ReplaceAll(text, "\r\n", "\n"), -1)
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

var blankLineRe = regexp.MustCompile(`\n\s*\n`)
