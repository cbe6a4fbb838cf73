// Package store persists news items in a single JSON document with a short
// read cache, atomic replacement and rotating backups.
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
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/newsbot/core/logger"
	"github.com/m3rciful/newsbot/core/metrics"
	"github.com/m3rciful/newsbot/news"
)

// Defaults for zero Options fields.
const (
	DefaultCacheTTL          = 5 * time.Second
	DefaultMaxBackups        = 10
	DefaultBackupMinInterval = 600 * time.Second
)

// Options configure a Store.
type Options struct {
	Path              string
	BackupDir         string
	MaxBackups        int
	BackupMinInterval time.Duration
	CacheTTL          time.Duration
	// LegacyPath points at a legacy export imported by Seed; empty disables seeding.
	LegacyPath string
	// Location is the zone used for default display dates.
	Location *time.Location
	Now      func() time.Time
	Metrics  *metrics.Metrics
}

// Store is the sole writer of the news document. A single process is assumed;
// the mutex only orders callers inside this process.
type Store struct {
	opts Options

	mu         sync.Mutex
	cache      *news.Document
	cachedAt   time.Time
	lastBackup time.Time
}

// New returns a Store; it does not touch the disk.
func New(opts Options) *Store {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = DefaultMaxBackups
	}
	if opts.BackupMinInterval <= 0 {
		opts.BackupMinInterval = DefaultBackupMinInterval
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Store{opts: opts}
}

// Path returns the primary document location.
func (s *Store) Path() string { return s.opts.Path }

func (s *Store) now() time.Time {
	return s.opts.Now().In(s.opts.Location)
}

// Ensure creates an empty template document if none exists.
func (s *Store) Ensure(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(ctx)
}

func (s *Store) ensureLocked(ctx context.Context) error {
	if _, err := os.Stat(s.opts.Path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("store: stat %s: %w", s.opts.Path, err)
	}
	doc := news.NewDocument(s.now())
	if err := s.persist(doc); err != nil {
		return err
	}
	logger.Info(ctx, "store", "store.created", slog.String("path", s.opts.Path))
	return nil
}

// Load prepares the store at startup: it creates a missing document and
// replaces a corrupt one with a template after copying the original bytes to
// a sibling ".corrupt-<ts>" file.
func (s *Store) Load(ctx context.Context) (*news.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLocked(ctx); err != nil {
		return nil, err
	}
	doc, err := s.readLocked(ctx, true)
	if err == nil {
		return doc.Clone(), nil
	}
	if !errors.Is(err, ErrFormat) {
		return nil, err
	}

	now := s.now()
	quarantine := s.opts.Path + ".corrupt-" + timestampSuffix(now)
	if cpErr := copyFile(s.opts.Path, quarantine); cpErr != nil {
		return nil, fmt.Errorf("store: preserve corrupt document: %w", cpErr)
	}
	logger.Warn(ctx, "store", "store.recovered",
		slog.String("path", s.opts.Path),
		slog.String("cause", quarantine),
		slog.String("err", err.Error()),
	)
	doc = news.NewDocument(now)
	if data, rerr := os.ReadFile(s.opts.Path); rerr == nil {
		doc.LastID = salvageLastID(data)
	}
	if err := s.persist(doc); err != nil {
		return nil, err
	}
	return doc.Clone(), nil
}

// Read returns a copy of the document, served from cache while it is fresh
// unless force is set.
func (s *Store) Read(ctx context.Context, force bool) (*news.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.readLocked(ctx, force)
	if err != nil {
		return nil, err
	}
	return doc.Clone(), nil
}

// readLocked returns the cached document itself; callers must clone before
// mutating it.
func (s *Store) readLocked(ctx context.Context, force bool) (*news.Document, error) {
	now := s.opts.Now()
	if !force && s.cache != nil && now.Sub(s.cachedAt) < s.opts.CacheTTL {
		return s.cache, nil
	}
	data, err := os.ReadFile(s.opts.Path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.ensureLocked(ctx); err != nil {
			return nil, err
		}
		data, err = os.ReadFile(s.opts.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", s.opts.Path, err)
	}
	doc, skipped, err := decodeDocument(s.opts.Path, data, s.now())
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		logger.Warn(ctx, "store", "store.items_skipped",
			slog.String("path", s.opts.Path),
			slog.Int("count", skipped),
		)
	}
	s.cache = doc
	s.cachedAt = now
	logger.Debug(ctx, "store", "store.read",
		slog.String("cache", "miss"),
		slog.Int("count", len(doc.Items)),
	)
	return doc, nil
}

// Write persists doc: it stamps the update time, takes a backup when due,
// then atomically replaces the primary file and refreshes the cache.
func (s *Store) Write(ctx context.Context, doc *news.Document) error {
	if doc == nil {
		return fmt.Errorf("store: nil document")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(ctx, doc.Clone())
}

func (s *Store) writeLocked(ctx context.Context, doc *news.Document) error {
	now := s.now()
	if doc.Version == 0 {
		doc.Version = news.DocumentVersion
	}
	if doc.Items == nil {
		doc.Items = []news.Item{}
	}
	if s.cache != nil && doc.LastID < s.cache.LastID {
		doc.LastID = s.cache.LastID
	}
	if max := doc.MaxID(); doc.LastID < max {
		doc.LastID = max
	}
	if doc.Metadata.CreatedAt.IsZero() {
		doc.Metadata.CreatedAt = now
	}
	doc.Metadata.UpdatedAt = now

	s.maybeBackup(ctx, now)

	err := s.persist(doc)
	s.opts.Metrics.ObserveStoreWrite(metrics.Outcome(err))
	if err != nil {
		logger.Error(ctx, "store", "store.write",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return err
	}
	logger.Debug(ctx, "store", "store.write",
		slog.String("status", "ok"),
		slog.Int("count", len(doc.Items)),
	)
	return nil
}

func (s *Store) persist(doc *news.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode: %w", err)
	}
	if err := writeAtomic(s.opts.Path, append(data, '\n')); err != nil {
		return err
	}
	s.cache = doc
	s.cachedAt = s.opts.Now()
	return nil
}

// decodeDocument parses the primary document. Only unreadable JSON or a
// non-array items field is a format error; entries that are not objects are
// dropped and counted in skipped.
func decodeDocument(path string, data []byte, now time.Time) (doc *news.Document, skipped int, err error) {
	var raw struct {
		Version          int               `json:"version"`
		SeededFromLegacy bool              `json:"seededFromLegacy"`
		LastID           json.RawMessage   `json:"lastId"`
		Items            json.RawMessage   `json:"items"`
		Metadata         news.DocumentMeta `json:"metadata"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, 0, &FormatError{Path: path, Reason: "invalid json", Err: err}
	}
	items := bytes.TrimSpace(raw.Items)
	if len(items) == 0 || items[0] != '[' {
		return nil, 0, &FormatError{Path: path, Reason: "items is not an array"}
	}
	var list []json.RawMessage
	if err := json.Unmarshal(items, &list); err != nil {
		return nil, 0, &FormatError{Path: path, Reason: "invalid items", Err: err}
	}

	doc = &news.Document{
		Version:          raw.Version,
		SeededFromLegacy: raw.SeededFromLegacy,
		Items:            make([]news.Item, 0, len(list)),
		Metadata:         raw.Metadata,
	}
	if doc.Version == 0 {
		doc.Version = news.DocumentVersion
	}
	for _, entry := range list {
		var it news.Item
		if err := json.Unmarshal(entry, &it); err != nil {
			skipped++
			continue
		}
		doc.Items = append(doc.Items, news.Normalize(it, now))
	}
	doc.LastID, _ = news.LooseInt(raw.LastID)
	if max := doc.MaxID(); doc.LastID < max {
		doc.LastID = max
	}
	if doc.Metadata.CreatedAt.IsZero() {
		doc.Metadata.CreatedAt = now
	}
	if doc.Metadata.UpdatedAt.IsZero() {
		doc.Metadata.UpdatedAt = doc.Metadata.CreatedAt
	}
	return doc, skipped, nil
}

// salvageLastID recovers the highest id a damaged document still shows, from
// lastId or from any object under items, so ids are not handed out twice.
func salvageLastID(data []byte) int {
	var raw struct {
		LastID json.RawMessage   `json:"lastId"`
		Items  []json.RawMessage `json:"items"`
	}
	if json.Unmarshal(data, &raw) != nil {
		var partial struct {
			LastID json.RawMessage `json:"lastId"`
		}
		if json.Unmarshal(data, &partial) != nil {
			return 0
		}
		raw.LastID = partial.LastID
	}
	last, _ := news.LooseInt(raw.LastID)
	for _, entry := range raw.Items {
		var it struct {
			ID json.RawMessage `json:"id"`
		}
		if json.Unmarshal(entry, &it) != nil {
			continue
		}
		if id, ok := news.LooseInt(it.ID); ok && id > last {
			last = id
		}
	}
	return last
}

// timestampSuffix renders an ISO timestamp usable in file names.
func timestampSuffix(t time.Time) string {
	iso := t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	return strings.NewReplacer(":", "-", ".", "-").Replace(iso)
}
