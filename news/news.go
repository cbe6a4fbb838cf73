// Package news defines the news entity and the store document that the web
// layer reads.
package news

import (
	"strings"
	"time"
)

// Status is the lifecycle state of an item.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusDeleted   Status = "deleted"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusDeleted:
		return true
	}
	return false
}

// Filter selects items for listing and search.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterDraft     Filter = Filter(StatusDraft)
	FilterPublished Filter = Filter(StatusPublished)
	FilterDeleted   Filter = Filter(StatusDeleted)
	// FilterMain selects published items promoted to the front page.
	FilterMain Filter = "main"
)

// Filters lists every filter in menu order.
var Filters = []Filter{FilterAll, FilterPublished, FilterDraft, FilterMain, FilterDeleted}

// ParseFilter accepts a filter name case-insensitively.
func ParseFilter(raw string) (Filter, bool) {
	f := Filter(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Filters {
		if f == known {
			return f, true
		}
	}
	return "", false
}

// Match reports whether it passes the filter.
func (f Filter) Match(it Item) bool {
	switch f {
	case FilterAll:
		return true
	case FilterMain:
		return it.Status == StatusPublished && it.ShowOnMain
	default:
		return it.Status == Status(f)
	}
}

// Source records where a draft came from.
type Source struct {
	ChatID       int64  `json:"telegramChatId"`
	MessageID    int    `json:"telegramMessageId"`
	MediaGroupID string `json:"telegramMediaGroupId,omitempty"`
}

// Item is a single news entry.
type Item struct {
	ID         int            `json:"id"`
	Title      string         `json:"title"`
	Text       Paragraphs     `json:"text"`
	Image      Images         `json:"image,omitempty"`
	Date       string         `json:"date"`
	Status     Status         `json:"status"`
	ShowOnMain bool           `json:"showOnMain"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	Source     *Source        `json:"source,omitempty"`
	Metadata   map[string]any `json:"metadata"`
}

// Clone returns a deep copy of it.
func (it Item) Clone() Item {
	out := it
	out.Text = append(Paragraphs(nil), it.Text...)
	out.Image = append(Images(nil), it.Image...)
	if it.Source != nil {
		src := *it.Source
		out.Source = &src
	}
	if it.Metadata != nil {
		out.Metadata = make(map[string]any, len(it.Metadata))
		for k, v := range it.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// DocumentVersion is the current store layout version.
const DocumentVersion = 2

// DocumentMeta carries document level timestamps.
type DocumentMeta struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Document is the persisted store: items are ordered newest-created first and
// LastID never decreases.
type Document struct {
	Version          int          `json:"version"`
	SeededFromLegacy bool         `json:"seededFromLegacy"`
	LastID           int          `json:"lastId"`
	Items            []Item       `json:"items"`
	Metadata         DocumentMeta `json:"metadata"`
}

// NewDocument returns an empty template stamped with now.
func NewDocument(now time.Time) *Document {
	return &Document{
		Version:  DocumentVersion,
		Items:    []Item{},
		Metadata: DocumentMeta{CreatedAt: now, UpdatedAt: now},
	}
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	out.Items = make([]Item, len(d.Items))
	for i, it := range d.Items {
		out.Items[i] = it.Clone()
	}
	return &out
}

// Index returns the position of the item with id.
func (d *Document) Index(id int) (int, bool) {
	for i := range d.Items {
		if d.Items[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// MaxID returns the largest id present in Items.
func (d *Document) MaxID() int {
	max := 0
	for _, it := range d.Items {
		if it.ID > max {
			max = it.ID
		}
	}
	return max
}
