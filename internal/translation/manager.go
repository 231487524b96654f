package translation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/langdetect"
	"horse.fit/newsdesk/internal/store"
)

// Options controls how the manager drives a provider over the backlog.
type Options struct {
	SourceLang            string
	TargetLang            string
	Provider              string
	Delay                 time.Duration
	TranslateDescriptions bool
}

// SweepStats reports backlog sweep counters.
type SweepStats struct {
	Requested int `json:"requested"`
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

// Manager walks the untranslated backlog and records completed translations.
// Each record is committed as soon as its translation succeeds, so a failure
// partway through a sweep never loses earlier work.
type Manager struct {
	store    store.Store
	registry *Registry
	opts     Options
	logger   zerolog.Logger
	detect   func(string) string
}

func NewManager(st store.Store, registry *Registry, opts Options, logger zerolog.Logger) *Manager {
	return &Manager{
		store:    st,
		registry: registry,
		opts:     opts,
		logger:   logger.With().Str("component", "translation").Logger(),
		detect:   langdetect.DetectISO6391,
	}
}

func (m *Manager) DefaultProvider() string {
	if m == nil || m.registry == nil {
		return ""
	}
	return m.registry.DefaultProvider()
}

// TranslateText translates one piece of text using the configured provider.
func (m *Manager) TranslateText(ctx context.Context, text string) (string, error) {
	if m == nil || m.registry == nil {
		return "", fmt.Errorf("translation manager is not initialized")
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", fmt.Errorf("text is required")
	}

	provider, err := m.registry.Provider(m.opts.Provider)
	if err != nil {
		return "", err
	}

	resp, err := provider.Translate(ctx, TranslateRequest{
		Text:       trimmed,
		SourceLang: m.resolveSourceLang(trimmed),
		TargetLang: m.opts.TargetLang,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// ProcessUntranslated sweeps up to limit pending records. Records whose
// translation fails are left pending for the next sweep.
func (m *Manager) ProcessUntranslated(ctx context.Context, limit int) (SweepStats, error) {
	if m == nil || m.store == nil || m.registry == nil {
		return SweepStats{}, fmt.Errorf("translation manager is not initialized")
	}
	if limit <= 0 {
		return SweepStats{}, nil
	}

	provider, err := m.registry.Provider(m.opts.Provider)
	if err != nil {
		return SweepStats{}, err
	}

	pending, err := m.store.ListUntranslated(ctx, limit)
	if err != nil {
		return SweepStats{}, fmt.Errorf("list untranslated: %w", err)
	}

	stats := SweepStats{Requested: len(pending)}
	for i, rec := range pending {
		if i > 0 && m.opts.Delay > 0 {
			if err := sleepContext(ctx, m.opts.Delay); err != nil {
				return stats, err
			}
		}

		title := strings.TrimSpace(rec.Title)
		if title == "" {
			stats.Failed++
			m.logger.Warn().Str("link", rec.Link).Msg("skipping record with empty title")
			continue
		}

		resp, err := provider.Translate(ctx, TranslateRequest{
			Text:       title,
			SourceLang: m.resolveSourceLang(title),
			TargetLang: m.opts.TargetLang,
		})
		if err != nil {
			stats.Failed++
			m.logger.Warn().Err(err).Str("link", rec.Link).Msg("title translation failed")
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			continue
		}

		translatedDescription := ""
		if m.opts.TranslateDescriptions && strings.TrimSpace(rec.Description) != "" {
			descResp, descErr := provider.Translate(ctx, TranslateRequest{
				Text:       rec.Description,
				SourceLang: m.resolveSourceLang(rec.Description),
				TargetLang: m.opts.TargetLang,
			})
			if descErr != nil {
				// A failed description never blocks the title translation.
				m.logger.Warn().Err(descErr).Str("link", rec.Link).Msg("description translation failed")
			} else {
				translatedDescription = descResp.Text
			}
		}

		updated, err := m.store.UpdateTranslation(ctx, rec.Link, resp.Text, translatedDescription)
		if err != nil {
			stats.Failed++
			m.logger.Error().Err(err).Str("link", rec.Link).Msg("store translation update failed")
			continue
		}
		if !updated {
			stats.Failed++
			m.logger.Warn().Str("link", rec.Link).Msg("translation update was not applied")
			continue
		}

		stats.Processed++
		m.logger.Debug().
			Str("link", rec.Link).
			Str("provider", resp.ProviderName).
			Int64("latency_ms", resp.LatencyMs).
			Msg("record translated")
	}

	return stats, nil
}

// resolveSourceLang prefers per-text detection over the configured source
// language, since mixed feeds carry titles in several languages.
func (m *Manager) resolveSourceLang(text string) string {
	if m.detect != nil {
		if detected := m.detect(text); detected != "" && detected != normalizeLangCode(m.opts.TargetLang) {
			return detected
		}
	}
	return m.opts.SourceLang
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
