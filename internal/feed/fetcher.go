package feed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/newstime"
	"horse.fit/newsdesk/internal/preview"
	"horse.fit/newsdesk/internal/store"
	"horse.fit/newsdesk/internal/textutil"
)

const defaultFetchTimeout = 10 * time.Second

// Fetcher downloads one source and normalizes its items into store records.
type Fetcher struct {
	client *resty.Client
	parser *gofeed.Parser
	logger zerolog.Logger
	enrich bool
}

func NewFetcher(timeout time.Duration, enrichPreviews bool, logger zerolog.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Fetcher{
		client: resty.New().SetTimeout(timeout),
		parser: gofeed.NewParser(),
		logger: logger.With().Str("component", "feed").Logger(),
		enrich: enrichPreviews,
	}
}

// Fetch downloads src and returns its normalized items. Items without a
// title or link are dropped.
func (f *Fetcher) Fetch(ctx context.Context, src Source) ([]store.Record, error) {
	if f == nil || f.client == nil {
		return nil, fmt.Errorf("fetcher is not initialized")
	}

	switch src.Kind {
	case KindJSON:
		return f.fetchJSON(ctx, src)
	default:
		return f.fetchRSS(ctx, src)
	}
}

func (f *Fetcher) fetchRSS(ctx context.Context, src Source) ([]store.Record, error) {
	resp, err := f.client.R().SetContext(ctx).Get(src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", src.URL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch feed %s: status %d", src.URL, resp.StatusCode())
	}

	parsed, err := f.parser.ParseString(string(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", src.URL, err)
	}

	records := make([]store.Record, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		rec, ok := f.normalize(ctx, src, item.Title, item.Link, item.Description, item.Published)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (f *Fetcher) fetchJSON(ctx context.Context, src Source) ([]store.Record, error) {
	request := f.client.R().SetContext(ctx)
	if src.AuthToken != "" {
		request.SetQueryParam("auth_token", src.AuthToken)
	}

	resp, err := request.Get(src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch posts %s: %w", src.URL, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch posts %s: status %d", src.URL, resp.StatusCode())
	}

	payload, err := validatePostsPayload(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("validate posts payload: %w", err)
	}

	records := make([]store.Record, 0, len(payload.Results))
	for _, post := range payload.Results {
		sourceName := strings.TrimSpace(post.Source.Title)
		if sourceName == "" {
			sourceName = src.Name
		}
		rec, ok := f.normalize(ctx, src, post.Title, post.URL, post.Description, post.PublishedAt)
		if !ok {
			continue
		}
		rec.Source = sourceName
		if rec.Description == "" {
			if codes := post.currencyCodes(); len(codes) > 0 {
				rec.Description = strings.Join(codes, ", ")
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

func (f *Fetcher) normalize(ctx context.Context, src Source, title, link, description, published string) (store.Record, bool) {
	cleanTitle := textutil.Clean(title)
	cleanLink := strings.TrimSpace(link)
	if cleanTitle == "" || cleanLink == "" {
		return store.Record{}, false
	}

	summary := textutil.Summary(description)
	if summary == "" && f.enrich {
		if text, err := preview.FetchText(ctx, cleanLink); err != nil {
			f.logger.Debug().Err(err).Str("link", cleanLink).Msg("preview enrichment failed")
		} else {
			summary = textutil.Truncate(text, textutil.DescriptionLimit)
		}
	}

	return store.Record{
		Title:             cleanTitle,
		Link:              cleanLink,
		Description:       summary,
		Published:         newstime.Normalize(strings.TrimSpace(published)),
		Source:            src.Name,
		Category:          src.Category,
		TranslationStatus: store.StatusPending,
	}, true
}
