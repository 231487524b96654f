package refresh

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/feed"
	"horse.fit/newsdesk/internal/store"
	"horse.fit/newsdesk/internal/translation"
)

type stubSnapshotStore struct {
	store.Store

	latest     []store.Record
	latestErr  error
	stats      store.Stats
	purgeCalls []int
}

func (s *stubSnapshotStore) ListLatest(_ context.Context, limit int) ([]store.Record, error) {
	if s.latestErr != nil {
		return nil, s.latestErr
	}
	if limit < len(s.latest) {
		return s.latest[:limit], nil
	}
	return s.latest, nil
}

func (s *stubSnapshotStore) CountByStatus(_ context.Context) (store.Stats, error) {
	return s.stats, nil
}

func (s *stubSnapshotStore) PurgeOlderThan(_ context.Context, days int) (int64, error) {
	s.purgeCalls = append(s.purgeCalls, days)
	return 0, nil
}

type stubCycleCollector struct {
	calls int
	err   error
}

func (c *stubCycleCollector) Collect(_ context.Context) (feed.CollectStats, error) {
	c.calls++
	return feed.CollectStats{}, c.err
}

type stubSweeper struct {
	limits []int
}

func (s *stubSweeper) ProcessUntranslated(_ context.Context, limit int) (translation.SweepStats, error) {
	s.limits = append(s.limits, limit)
	return translation.SweepStats{Requested: limit}, nil
}

func TestRunCyclePublishesSnapshot(t *testing.T) {
	t.Parallel()

	st := &stubSnapshotStore{
		latest: []store.Record{{Title: "BTC rallies", Link: "https://example.com/a"}},
		stats:  store.Stats{Total: 1, Pending: 1},
	}
	collector := &stubCycleCollector{}
	sweeper := &stubSweeper{}
	loop := NewLoop(st, collector, sweeper, Options{SweepLimit: 5, SnapshotSize: 20}, zerolog.Nop())

	loop.RunCycle(context.Background())

	if collector.calls != 1 {
		t.Fatalf("expected one collect call, got %d", collector.calls)
	}
	if len(sweeper.limits) != 1 || sweeper.limits[0] != 5 {
		t.Fatalf("unexpected sweep calls: %v", sweeper.limits)
	}

	snap := loop.Snapshot()
	if len(snap.Records) != 1 || snap.Records[0].Link != "https://example.com/a" {
		t.Fatalf("unexpected snapshot records: %+v", snap.Records)
	}
	if snap.Stats.Total != 1 {
		t.Fatalf("unexpected snapshot stats: %+v", snap.Stats)
	}
	if snap.LastUpdate.IsZero() {
		t.Fatalf("expected snapshot timestamp to be set")
	}
}

func TestRunCycleKeepsPreviousSnapshotOnReloadFailure(t *testing.T) {
	t.Parallel()

	st := &stubSnapshotStore{
		latest: []store.Record{{Title: "BTC rallies", Link: "https://example.com/a"}},
	}
	loop := NewLoop(st, &stubCycleCollector{}, nil, Options{SnapshotSize: 20}, zerolog.Nop())

	loop.RunCycle(context.Background())
	st.latestErr = fmt.Errorf("store unavailable")
	loop.RunCycle(context.Background())

	snap := loop.Snapshot()
	if len(snap.Records) != 1 {
		t.Fatalf("expected previous snapshot to survive reload failure, got %+v", snap.Records)
	}
}

func TestRunCycleSurvivesCollectorFailure(t *testing.T) {
	t.Parallel()

	st := &stubSnapshotStore{}
	collector := &stubCycleCollector{err: fmt.Errorf("upstream down")}
	loop := NewLoop(st, collector, nil, Options{}, zerolog.Nop())

	loop.RunCycle(context.Background())

	if loop.Snapshot().LastUpdate.IsZero() {
		t.Fatalf("expected snapshot publish despite collector failure")
	}
}

func TestSnapshotBeforeFirstCycleIsEmpty(t *testing.T) {
	t.Parallel()

	loop := NewLoop(&stubSnapshotStore{}, nil, nil, Options{}, zerolog.Nop())

	snap := loop.Snapshot()
	if snap == nil {
		t.Fatalf("expected non-nil snapshot")
	}
	if len(snap.Records) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap.Records)
	}
}

func TestMaybePurgeRunsAtMostOncePerDay(t *testing.T) {
	t.Parallel()

	st := &stubSnapshotStore{}
	loop := NewLoop(st, nil, nil, Options{RetentionDays: 7}, zerolog.Nop())

	loop.RunCycle(context.Background())
	loop.RunCycle(context.Background())

	if len(st.purgeCalls) != 1 {
		t.Fatalf("expected one purge call, got %d", len(st.purgeCalls))
	}
	if st.purgeCalls[0] != 7 {
		t.Fatalf("unexpected retention days: %d", st.purgeCalls[0])
	}
}
