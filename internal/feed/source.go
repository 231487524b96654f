// Package feed fetches news items from upstream RSS feeds and JSON APIs,
// normalizes them, and persists anything not seen before.
package feed

import (
	"strings"

	"horse.fit/newsdesk/internal/config"
)

// Feed payload kinds.
const (
	KindRSS  = "rss"
	KindJSON = "json"
)

// Category values assigned to collected items.
const (
	CategoryCrypto  = "crypto"
	CategoryGeneral = "general"
)

// Source describes one upstream feed. Fallback, when set, is tried after the
// primary fetch fails.
type Source struct {
	Name      string
	URL       string
	Kind      string
	Category  string
	AuthToken string
	Fallback  *Source
}

// BuildSources derives the configured source list. When a CryptoPanic auth
// token is present the JSON API becomes the primary crypto source with the
// public RSS feed as fallback.
func BuildSources(cfg *config.Config) []Source {
	if cfg == nil {
		return nil
	}

	sources := make([]Source, 0, 2)

	cryptoRSS := strings.TrimSpace(cfg.CryptoFeedURL)
	cryptoAPI := strings.TrimSpace(cfg.CryptoAPIURL)
	token := strings.TrimSpace(cfg.CryptoAuthToken)

	switch {
	case token != "" && cryptoAPI != "":
		src := Source{
			Name:      cfg.DefaultSource,
			URL:       cryptoAPI,
			Kind:      KindJSON,
			Category:  CategoryCrypto,
			AuthToken: token,
		}
		if cryptoRSS != "" {
			src.Fallback = &Source{
				Name:     cfg.DefaultSource,
				URL:      cryptoRSS,
				Kind:     KindRSS,
				Category: CategoryCrypto,
			}
		}
		sources = append(sources, src)
	case cryptoRSS != "":
		sources = append(sources, Source{
			Name:     cfg.DefaultSource,
			URL:      cryptoRSS,
			Kind:     KindRSS,
			Category: CategoryCrypto,
		})
	}

	if general := strings.TrimSpace(cfg.GeneralFeedURL); general != "" {
		sources = append(sources, Source{
			Name:     "General",
			URL:      general,
			Kind:     KindRSS,
			Category: CategoryGeneral,
		})
	}

	return sources
}
