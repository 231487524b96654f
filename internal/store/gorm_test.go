package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/config"
	"horse.fit/newsdesk/internal/globaltime"
)

func openTestStore(t *testing.T) Store {
	t.Helper()

	cfg := &config.Config{
		StoreBackend: config.BackendSQLite,
		SQLitePath:   filepath.Join(t.TempDir(), "news.db"),
		LogLevel:     "silent",
	}
	s, err := Open(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func sampleRecord(link string) Record {
	return Record{
		Title:       "Bitcoin climbs past resistance",
		Link:        link,
		Description: "Traders point to ETF inflows.",
		Published:   "2023-01-02T15:04:05Z",
		Source:      "CryptoPanic",
		Category:    "crypto",
	}
}

func TestInsertOneIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	inserted, err := s.InsertOne(ctx, sampleRecord("https://example.com/a"))
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !inserted {
		t.Fatalf("expected first insert to report true")
	}

	inserted, err = s.InsertOne(ctx, sampleRecord("https://example.com/a"))
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if inserted {
		t.Fatalf("expected duplicate insert to report false")
	}

	stats, err := s.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if stats.Total != 1 {
		t.Fatalf("expected exactly one record, got %d", stats.Total)
	}
}

func TestInsertManySkipsDuplicates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.InsertOne(ctx, sampleRecord("https://example.com/a")); err != nil {
		t.Fatalf("seed insert: %v", err)
	}

	batch := []Record{
		sampleRecord("https://example.com/a"),
		sampleRecord("https://example.com/b"),
		sampleRecord("https://example.com/c"),
	}
	inserted, err := s.InsertMany(ctx, batch)
	if err != nil {
		t.Fatalf("insert many: %v", err)
	}
	if inserted != 2 {
		t.Fatalf("expected 2 inserted, got %d", inserted)
	}
}

func TestUpdateTranslationFlow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := sampleRecord("https://example.com/a")
	if _, err := s.InsertOne(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	pending, err := s.ListUntranslated(ctx, 10)
	if err != nil {
		t.Fatalf("list untranslated: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one pending record, got %d", len(pending))
	}
	if pending[0].TranslationStatus != StatusPending {
		t.Fatalf("unexpected status: %q", pending[0].TranslationStatus)
	}

	updated, err := s.UpdateTranslation(ctx, rec.Link, "비트코인이 저항선을 돌파하다", "")
	if err != nil {
		t.Fatalf("update translation: %v", err)
	}
	if !updated {
		t.Fatalf("expected update to match the record")
	}

	got, err := s.FindByLink(ctx, rec.Link)
	if err != nil {
		t.Fatalf("find by link: %v", err)
	}
	if got.TranslationStatus != StatusCompleted {
		t.Fatalf("unexpected status after update: %q", got.TranslationStatus)
	}
	if got.TranslatedTitle != "비트코인이 저항선을 돌파하다" {
		t.Fatalf("unexpected translated title: %q", got.TranslatedTitle)
	}

	pending, err = s.ListUntranslated(ctx, 10)
	if err != nil {
		t.Fatalf("list untranslated: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending records, got %d", len(pending))
	}

	updated, err = s.UpdateTranslation(ctx, "https://example.com/missing", "x", "")
	if err != nil {
		t.Fatalf("update missing: %v", err)
	}
	if updated {
		t.Fatalf("expected update of missing link to report false")
	}
}

func TestUpdateTranslationRequiresFields(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := sampleRecord("https://example.com/a")
	if _, err := s.InsertOne(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	updated, err := s.UpdateTranslation(ctx, rec.Link, "", "")
	if err != nil {
		t.Fatalf("empty update: %v", err)
	}
	if updated {
		t.Fatalf("expected empty update to report false")
	}

	got, err := s.FindByLink(ctx, rec.Link)
	if err != nil {
		t.Fatalf("find by link: %v", err)
	}
	if got.TranslationStatus != StatusPending {
		t.Fatalf("empty update should leave the record pending, got %q", got.TranslationStatus)
	}
}

func TestUpdateTranslationKeepsExistingTitle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rec := sampleRecord("https://example.com/a")
	if _, err := s.InsertOne(ctx, rec); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if _, err := s.UpdateTranslation(ctx, rec.Link, "비트코인이 저항선을 돌파하다", ""); err != nil {
		t.Fatalf("title update: %v", err)
	}
	updated, err := s.UpdateTranslation(ctx, rec.Link, "", "ETF 자금 유입이 원인으로 지목된다.")
	if err != nil {
		t.Fatalf("description update: %v", err)
	}
	if !updated {
		t.Fatalf("expected description update to match the record")
	}

	got, err := s.FindByLink(ctx, rec.Link)
	if err != nil {
		t.Fatalf("find by link: %v", err)
	}
	if got.TranslatedTitle != "비트코인이 저항선을 돌파하다" {
		t.Fatalf("description update should not clear the title, got %q", got.TranslatedTitle)
	}
	if got.TranslatedDescription != "ETF 자금 유입이 원인으로 지목된다." {
		t.Fatalf("unexpected translated description: %q", got.TranslatedDescription)
	}
}

func TestListUntranslatedNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := sampleRecord("https://example.com/old")
	older.Published = "2023-01-01T00:00:00Z"
	newer := sampleRecord("https://example.com/new")
	newer.Published = "2023-01-03T00:00:00Z"

	if _, err := s.InsertMany(ctx, []Record{older, newer}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	pending, err := s.ListUntranslated(ctx, 1)
	if err != nil {
		t.Fatalf("list untranslated: %v", err)
	}
	if len(pending) != 1 || pending[0].Link != newer.Link {
		t.Fatalf("expected the newest pending record first, got %+v", pending)
	}
}

func TestListLatestOrdersByPublished(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := sampleRecord("https://example.com/old")
	older.Published = "2023-01-01T00:00:00Z"
	newer := sampleRecord("https://example.com/new")
	newer.Published = "2023-01-03T00:00:00Z"

	if _, err := s.InsertMany(ctx, []Record{older, newer}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	latest, err := s.ListLatest(ctx, 10)
	if err != nil {
		t.Fatalf("list latest: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("expected two records, got %d", len(latest))
	}
	if latest[0].Link != newer.Link {
		t.Fatalf("expected newest record first, got %q", latest[0].Link)
	}

	published, err := s.LatestPublished(ctx)
	if err != nil {
		t.Fatalf("latest published: %v", err)
	}
	if published != newer.Published {
		t.Fatalf("unexpected latest published: %q", published)
	}
}

func TestListLatestByCategory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	crypto := sampleRecord("https://example.com/crypto")
	general := sampleRecord("https://example.com/general")
	general.Category = "general"

	if _, err := s.InsertMany(ctx, []Record{crypto, general}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := s.ListLatestByCategory(ctx, "general", 10)
	if err != nil {
		t.Fatalf("list by category: %v", err)
	}
	if len(got) != 1 || got[0].Link != general.Link {
		t.Fatalf("unexpected category result: %+v", got)
	}
}

func TestFindByLinkNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.FindByLink(context.Background(), "https://example.com/missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPurgeOlderThan(t *testing.T) {
	defer globaltime.ResetTime()

	s := openTestStore(t)
	ctx := context.Background()

	globaltime.SetMockTime(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))
	if _, err := s.InsertOne(ctx, sampleRecord("https://example.com/old")); err != nil {
		t.Fatalf("insert old: %v", err)
	}

	globaltime.SetMockTime(time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC))
	if _, err := s.InsertOne(ctx, sampleRecord("https://example.com/fresh")); err != nil {
		t.Fatalf("insert fresh: %v", err)
	}

	removed, err := s.PurgeOlderThan(ctx, 7)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one record removed, got %d", removed)
	}

	if _, err := s.FindByLink(ctx, "https://example.com/fresh"); err != nil {
		t.Fatalf("fresh record should survive: %v", err)
	}
	if _, err := s.FindByLink(ctx, "https://example.com/old"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("old record should be gone, got %v", err)
	}

	removed, err = s.PurgeOlderThan(ctx, 0)
	if err != nil {
		t.Fatalf("purge disabled: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected retention 0 to be a no-op, got %d", removed)
	}
}

func TestCountByStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := sampleRecord("https://example.com/a")
	b := sampleRecord("https://example.com/b")
	if _, err := s.InsertMany(ctx, []Record{a, b}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := s.UpdateTranslation(ctx, a.Link, "번역된 제목", ""); err != nil {
		t.Fatalf("update: %v", err)
	}

	stats, err := s.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if stats.Total != 2 || stats.Translated != 1 || stats.Pending != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
