package feed

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/store"
)

type stubCollectorStore struct {
	store.Store

	existing map[string]bool
	inserted []store.Record
	latest   string
}

func (s *stubCollectorStore) Exists(_ context.Context, link string) (bool, error) {
	return s.existing[link], nil
}

func (s *stubCollectorStore) InsertMany(_ context.Context, recs []store.Record) (int, error) {
	s.inserted = append(s.inserted, recs...)
	return len(recs), nil
}

func (s *stubCollectorStore) LatestPublished(_ context.Context) (string, error) {
	return s.latest, nil
}

type stubFetcher struct {
	items map[string][]store.Record
	fails map[string]bool
	calls []string
}

func (f *stubFetcher) Fetch(_ context.Context, src Source) ([]store.Record, error) {
	f.calls = append(f.calls, src.URL)
	if f.fails[src.URL] {
		return nil, fmt.Errorf("upstream unavailable")
	}
	return f.items[src.URL], nil
}

func TestCollectSkipsKnownLinks(t *testing.T) {
	t.Parallel()

	st := &stubCollectorStore{existing: map[string]bool{"https://example.com/known": true}}
	fetcher := &stubFetcher{
		items: map[string][]store.Record{
			"feed": {
				{Title: "Known item", Link: "https://example.com/known"},
				{Title: "Fresh item", Link: "https://example.com/fresh"},
				{Title: "Repeated in batch", Link: "https://example.com/fresh"},
			},
		},
	}
	collector := NewCollector(st, fetcher, []Source{{Name: "Test", URL: "feed"}}, false, zerolog.Nop())

	stats, err := collector.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if stats.Fetched != 3 || stats.Inserted != 1 || stats.Skipped != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(st.inserted) != 1 || st.inserted[0].Link != "https://example.com/fresh" {
		t.Fatalf("unexpected inserted records: %+v", st.inserted)
	}
}

func TestCollectUsesFallbackSource(t *testing.T) {
	t.Parallel()

	st := &stubCollectorStore{}
	fetcher := &stubFetcher{
		items: map[string][]store.Record{
			"fallback": {{Title: "From fallback", Link: "https://example.com/fb"}},
		},
		fails: map[string]bool{"primary": true},
	}
	src := Source{
		Name:     "CryptoPanic",
		URL:      "primary",
		Kind:     KindJSON,
		Fallback: &Source{Name: "CryptoPanic", URL: "fallback", Kind: KindRSS},
	}
	collector := NewCollector(st, fetcher, []Source{src}, false, zerolog.Nop())

	stats, err := collector.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if stats.Inserted != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(fetcher.calls) != 2 || fetcher.calls[0] != "primary" || fetcher.calls[1] != "fallback" {
		t.Fatalf("unexpected fetch order: %v", fetcher.calls)
	}
}

func TestCollectContinuesPastFailingSource(t *testing.T) {
	t.Parallel()

	st := &stubCollectorStore{}
	fetcher := &stubFetcher{
		items: map[string][]store.Record{
			"healthy": {{Title: "Still works", Link: "https://example.com/ok"}},
		},
		fails: map[string]bool{"broken": true},
	}
	sources := []Source{
		{Name: "Broken", URL: "broken"},
		{Name: "Healthy", URL: "healthy"},
	}
	collector := NewCollector(st, fetcher, sources, false, zerolog.Nop())

	stats, err := collector.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if stats.Inserted != 1 {
		t.Fatalf("expected healthy source to insert, got %+v", stats)
	}
}

func TestCollectFiltersOlderItems(t *testing.T) {
	t.Parallel()

	st := &stubCollectorStore{latest: "2023-01-02T12:00:00Z"}
	fetcher := &stubFetcher{
		items: map[string][]store.Record{
			"feed": {
				{Title: "Old", Link: "https://example.com/old", Published: "2023-01-01T00:00:00Z"},
				{Title: "New", Link: "https://example.com/new", Published: "2023-01-03T00:00:00Z"},
				{Title: "Garbage date", Link: "https://example.com/garbage", Published: "whenever"},
			},
		},
	}
	collector := NewCollector(st, fetcher, []Source{{Name: "Test", URL: "feed"}}, true, zerolog.Nop())

	stats, err := collector.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if stats.Inserted != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if st.inserted[0].Link != "https://example.com/new" {
		t.Fatalf("unexpected surviving record: %+v", st.inserted)
	}
}
