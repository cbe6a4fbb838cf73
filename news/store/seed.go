package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"regexp"
	"strconv"

	"github.com/m3rciful/newsbot/core/logger"
	"github.com/m3rciful/newsbot/news"
)

var mainHrefRe = regexp.MustCompile(`/news/(\d+)`)

type legacyMainEntry struct {
	Href string `json:"href"`
}

type legacyExport struct {
	News []news.Item       `json:"news"`
	Main []legacyMainEntry `json:"main"`
}

// Seed imports the legacy export into an empty, never-seeded document. Legacy
// items become published; those linked from the legacy main list are shown on
// the front page. It returns the number of imported items.
func (s *Store) Seed(ctx context.Context) (int, error) {
	if s.opts.LegacyPath == "" {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.readLocked(ctx, true)
	if err != nil {
		return 0, err
	}
	if cur.SeededFromLegacy || len(cur.Items) > 0 {
		return 0, nil
	}

	data, err := os.ReadFile(s.opts.LegacyPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn(ctx, "store", "store.seed",
				slog.String("status", "skip"),
				slog.String("path", s.opts.LegacyPath),
			)
			return 0, nil
		}
		return 0, fmt.Errorf("store: read legacy %s: %w", s.opts.LegacyPath, err)
	}
	export, err := decodeLegacy(data)
	if err != nil {
		return 0, &FormatError{Path: s.opts.LegacyPath, Reason: "invalid legacy export", Err: err}
	}

	mainIDs := make(map[int]bool, len(export.Main))
	for _, m := range export.Main {
		if match := mainHrefRe.FindStringSubmatch(m.Href); match != nil {
			if id, err := strconv.Atoi(match[1]); err == nil {
				mainIDs[id] = true
			}
		}
	}

	now := s.now()
	doc := cur.Clone()
	for _, it := range export.News {
		if it.ID <= 0 {
			continue
		}
		it.Status = news.StatusPublished
		it.ShowOnMain = mainIDs[it.ID]
		it.CreatedAt = now
		it.UpdatedAt = now
		doc.Items = append(doc.Items, news.Normalize(it, now))
	}
	doc.SeededFromLegacy = true
	if max := doc.MaxID(); doc.LastID < max {
		doc.LastID = max
	}
	if err := s.writeLocked(ctx, doc); err != nil {
		return 0, err
	}
	logger.Info(ctx, "store", "store.seed",
		slog.String("status", "ok"),
		slog.Int("count", len(doc.Items)),
		slog.Int("last_id", doc.LastID),
	)
	return len(doc.Items), nil
}

// decodeLegacy accepts {"news": [...], "main": [...]} or a bare item array.
func decodeLegacy(data []byte) (legacyExport, error) {
	var export legacyExport
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err := json.Unmarshal(trimmed, &export.News)
		return export, err
	}
	err := json.Unmarshal(trimmed, &export)
	return export, err
}
