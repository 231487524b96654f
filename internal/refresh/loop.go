// Package refresh drives the background cycle: collect new items, sweep a
// slice of the translation backlog, and publish a fresh in-memory snapshot
// for the read API.
package refresh

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/feed"
	"horse.fit/newsdesk/internal/globaltime"
	"horse.fit/newsdesk/internal/store"
	"horse.fit/newsdesk/internal/translation"
)

// Collector runs one ingestion pass.
type Collector interface {
	Collect(ctx context.Context) (feed.CollectStats, error)
}

// Sweeper processes part of the translation backlog.
type Sweeper interface {
	ProcessUntranslated(ctx context.Context, limit int) (translation.SweepStats, error)
}

// Snapshot is the read-side view published after each cycle. Handlers read
// it without touching the store.
type Snapshot struct {
	Records    []store.Record
	Stats      store.Stats
	LastUpdate time.Time
}

// Options tunes the loop cadence and snapshot shape.
type Options struct {
	Interval      time.Duration
	SweepLimit    int
	SnapshotSize  int
	RetentionDays int
}

// Loop owns the background cycle and the published snapshot.
type Loop struct {
	store     store.Store
	collector Collector
	sweeper   Sweeper
	opts      Options
	logger    zerolog.Logger

	current   atomic.Pointer[Snapshot]
	lastPurge atomic.Int64
}

func NewLoop(st store.Store, collector Collector, sweeper Sweeper, opts Options, logger zerolog.Logger) *Loop {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Second
	}
	if opts.SnapshotSize <= 0 {
		opts.SnapshotSize = 20
	}
	return &Loop{
		store:     st,
		collector: collector,
		sweeper:   sweeper,
		opts:      opts,
		logger:    logger.With().Str("component", "refresh").Logger(),
	}
}

// Snapshot returns the most recent published snapshot. A loop that has not
// completed a cycle yet returns an empty one.
func (l *Loop) Snapshot() *Snapshot {
	if l == nil {
		return &Snapshot{}
	}
	if snap := l.current.Load(); snap != nil {
		return snap
	}
	return &Snapshot{}
}

// Run executes one cycle immediately and then repeats every interval until
// ctx is canceled.
func (l *Loop) Run(ctx context.Context) error {
	if l == nil || l.store == nil {
		return fmt.Errorf("refresh loop is not initialized")
	}

	l.RunCycle(ctx)

	ticker := time.NewTicker(l.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.RunCycle(ctx)
		}
	}
}

// RunCycle executes one collect-sweep-snapshot pass. A panic in any stage is
// contained so the daemon outlives a bad cycle.
func (l *Loop) RunCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().Interface("panic", r).Msg("refresh cycle panicked")
		}
	}()

	if l.collector != nil {
		if _, err := l.collector.Collect(ctx); err != nil {
			l.logger.Error().Err(err).Msg("collection failed")
		}
	}

	if l.sweeper != nil && l.opts.SweepLimit > 0 {
		stats, err := l.sweeper.ProcessUntranslated(ctx, l.opts.SweepLimit)
		if err != nil {
			l.logger.Error().Err(err).Msg("translation sweep failed")
		} else if stats.Requested > 0 {
			l.logger.Info().
				Int("requested", stats.Requested).
				Int("processed", stats.Processed).
				Int("failed", stats.Failed).
				Msg("translation sweep finished")
		}
	}

	l.maybePurge(ctx)
	l.Reload(ctx)
}

// Reload rebuilds and publishes the snapshot from the store.
func (l *Loop) Reload(ctx context.Context) {
	records, err := l.store.ListLatest(ctx, l.opts.SnapshotSize)
	if err != nil {
		l.logger.Error().Err(err).Msg("snapshot reload failed, keeping previous snapshot")
		return
	}
	stats, err := l.store.CountByStatus(ctx)
	if err != nil {
		l.logger.Warn().Err(err).Msg("stats reload failed")
	}

	l.current.Store(&Snapshot{
		Records:    records,
		Stats:      stats,
		LastUpdate: globaltime.UTC(),
	})
}

// maybePurge enforces retention at most once per day.
func (l *Loop) maybePurge(ctx context.Context) {
	if l.opts.RetentionDays <= 0 {
		return
	}

	now := globaltime.UTC().Unix()
	last := l.lastPurge.Load()
	if last != 0 && now-last < int64((24*time.Hour).Seconds()) {
		return
	}
	if !l.lastPurge.CompareAndSwap(last, now) {
		return
	}

	if _, err := l.store.PurgeOlderThan(ctx, l.opts.RetentionDays); err != nil {
		l.logger.Error().Err(err).Msg("retention purge failed")
	}
}
