package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/config"
	"horse.fit/newsdesk/internal/store"
)

// End-to-end pass over a real feed payload and an embedded SQLite store.
func TestCollectPersistsFetchedItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer server.Close()

	cfg := &config.Config{
		StoreBackend: config.BackendSQLite,
		SQLitePath:   filepath.Join(t.TempDir(), "news.db"),
		LogLevel:     "silent",
	}
	st, err := store.Open(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	fetcher := NewFetcher(0, false, zerolog.Nop())
	sources := []Source{{Name: "CryptoPanic", URL: server.URL, Kind: KindRSS, Category: CategoryCrypto}}
	collector := NewCollector(st, fetcher, sources, false, zerolog.Nop())

	stats, err := collector.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if stats.Inserted != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	// A second pass over the same payload inserts nothing.
	stats, err = collector.Collect(context.Background())
	if err != nil {
		t.Fatalf("second collect: %v", err)
	}
	if stats.Inserted != 0 || stats.Skipped != 2 {
		t.Fatalf("expected second pass to skip everything, got %+v", stats)
	}

	counts, err := st.CountByStatus(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts.Total != 2 || counts.Pending != 2 || counts.Translated != 0 {
		t.Fatalf("unexpected stats: %+v", counts)
	}
}
