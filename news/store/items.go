package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/newsbot/core/logger"
	"github.com/m3rciful/newsbot/news"
)

// Page is one slice of a filtered listing.
type Page struct {
	Items []news.Item
	Total int
	Pages int
	Page  int
}

// Stats summarises the document.
type Stats struct {
	Total      int
	Published  int
	Drafts     int
	Deleted    int
	OnMain     int
	WithImages int
	LastID     int
	UpdatedAt  time.Time
}

// Create assigns the next id, normalizes draft and prepends it.
func (s *Store) Create(ctx context.Context, draft news.Item) (news.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.readLocked(ctx, true)
	if err != nil {
		return news.Item{}, err
	}
	doc := cur.Clone()
	now := s.now()

	it := draft.Clone()
	it.ID = doc.LastID + 1
	it.CreatedAt = now
	it.UpdatedAt = now
	it = news.Normalize(it, now)

	doc.LastID = it.ID
	doc.Items = append([]news.Item{it}, doc.Items...)
	if err := s.writeLocked(ctx, doc); err != nil {
		return news.Item{}, err
	}
	logger.Info(ctx, "store", "news.created",
		slog.Int("news_id", it.ID),
		slog.String("status", string(it.Status)),
	)
	return it.Clone(), nil
}

// Update applies mutate to the item with id and persists the result. A
// missing id reports found=false without an error.
func (s *Store) Update(ctx context.Context, id int, mutate func(*news.Item)) (news.Item, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.readLocked(ctx, true)
	if err != nil {
		return news.Item{}, false, err
	}
	idx, ok := cur.Index(id)
	if !ok {
		return news.Item{}, false, nil
	}
	doc := cur.Clone()
	now := s.now()

	it := doc.Items[idx]
	mutate(&it)
	it.ID = id
	it.CreatedAt = doc.Items[idx].CreatedAt
	it.UpdatedAt = now
	it = news.Normalize(it, now)
	doc.Items[idx] = it

	if err := s.writeLocked(ctx, doc); err != nil {
		return news.Item{}, true, err
	}
	return it.Clone(), true, nil
}

// Delete marks the item deleted and removes it from the front page.
func (s *Store) Delete(ctx context.Context, id int) (news.Item, bool, error) {
	return s.Update(ctx, id, func(it *news.Item) {
		it.Status = news.StatusDeleted
		it.ShowOnMain = false
	})
}

// Restore returns a deleted item to draft.
func (s *Store) Restore(ctx context.Context, id int) (news.Item, bool, error) {
	return s.Update(ctx, id, func(it *news.Item) { it.Status = news.StatusDraft })
}

// Publish marks the item published.
func (s *Store) Publish(ctx context.Context, id int) (news.Item, bool, error) {
	return s.Update(ctx, id, func(it *news.Item) { it.Status = news.StatusPublished })
}

// Unpublish returns the item to draft.
func (s *Store) Unpublish(ctx context.Context, id int) (news.Item, bool, error) {
	return s.Update(ctx, id, func(it *news.Item) { it.Status = news.StatusDraft })
}

// SetMain sets the front page flag.
func (s *Store) SetMain(ctx context.Context, id int, on bool) (news.Item, bool, error) {
	return s.Update(ctx, id, func(it *news.Item) { it.ShowOnMain = on })
}

// SetTitle replaces the title.
func (s *Store) SetTitle(ctx context.Context, id int, title string) (news.Item, bool, error) {
	return s.Update(ctx, id, func(it *news.Item) { it.Title = title })
}

// SetText replaces the paragraphs.
func (s *Store) SetText(ctx context.Context, id int, text news.Paragraphs) (news.Item, bool, error) {
	text = append(news.Paragraphs(nil), text...)
	return s.Update(ctx, id, func(it *news.Item) { it.Text = text })
}

// SetDate replaces the display date after validating it.
func (s *Store) SetDate(ctx context.Context, id int, date string) (news.Item, bool, error) {
	if !news.ValidDate(date) {
		return news.Item{}, false, fmt.Errorf("store: invalid date %q", date)
	}
	return s.Update(ctx, id, func(it *news.Item) { it.Date = date })
}

// AppendImages adds file names after the existing images.
func (s *Store) AppendImages(ctx context.Context, id int, names ...string) (news.Item, bool, error) {
	return s.Update(ctx, id, func(it *news.Item) {
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				it.Image = append(it.Image, n)
			}
		}
	})
}

// ClearImages removes every image reference.
func (s *Store) ClearImages(ctx context.Context, id int) (news.Item, bool, error) {
	return s.Update(ctx, id, func(it *news.Item) { it.Image = nil })
}

// Get returns the item with id or ErrNotFound.
func (s *Store) Get(ctx context.Context, id int) (news.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked(ctx, false)
	if err != nil {
		return news.Item{}, err
	}
	idx, ok := doc.Index(id)
	if !ok {
		return news.Item{}, fmt.Errorf("%w: #%d", ErrNotFound, id)
	}
	return doc.Items[idx].Clone(), nil
}

// List returns page (1-based) of the items matching filter in store order.
// Pages past the end are empty.
func (s *Store) List(ctx context.Context, filter news.Filter, page, perPage int) (Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked(ctx, false)
	if err != nil {
		return Page{}, err
	}
	var matched []news.Item
	for _, it := range doc.Items {
		if filter.Match(it) {
			matched = append(matched, it)
		}
	}
	return paginate(matched, page, perPage), nil
}

func paginate(items []news.Item, page, perPage int) Page {
	if perPage <= 0 {
		perPage = 1
	}
	if page < 1 {
		page = 1
	}
	total := len(items)
	out := Page{
		Items: []news.Item{},
		Total: total,
		Pages: (total + perPage - 1) / perPage,
		Page:  page,
	}
	start := (page - 1) * perPage
	if start >= total {
		return out
	}
	end := start + perPage
	if end > total {
		end = total
	}
	for _, it := range items[start:end] {
		out.Items = append(out.Items, it.Clone())
	}
	return out
}

// Search returns items matching filter whose title or any paragraph contains
// query, ignoring case.
func (s *Store) Search(ctx context.Context, query string, filter news.Filter) ([]news.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked(ctx, false)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	out := []news.Item{}
	if q == "" {
		return out, nil
	}
	for _, it := range doc.Items {
		if filter.Match(it) && matches(it, q) {
			out = append(out, it.Clone())
		}
	}
	return out, nil
}

func matches(it news.Item, q string) bool {
	if strings.Contains(strings.ToLower(it.Title), q) {
		return true
	}
	for _, p := range it.Text {
		if strings.Contains(strings.ToLower(p.Text), q) {
			return true
		}
	}
	return false
}

// Stats counts items per status. OnMain counts every flagged item whatever
// its status, so it can exceed the published main list.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked(ctx, false)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{
		Total:     len(doc.Items),
		LastID:    doc.LastID,
		UpdatedAt: doc.Metadata.UpdatedAt,
	}
	for _, it := range doc.Items {
		if len(it.Image) > 0 {
			st.WithImages++
		}
		if it.ShowOnMain {
			st.OnMain++
		}
		switch it.Status {
		case news.StatusPublished:
			st.Published++
		case news.StatusDraft:
			st.Drafts++
		case news.StatusDeleted:
			st.Deleted++
		}
	}
	return st, nil
}
