package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"horse.fit/newsdesk/internal/feed"
	"horse.fit/newsdesk/internal/globaltime"
	"horse.fit/newsdesk/internal/newstime"
	"horse.fit/newsdesk/internal/refresh"
	"horse.fit/newsdesk/internal/store"
	"horse.fit/newsdesk/internal/textutil"
	"horse.fit/newsdesk/internal/translation"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// SnapshotSource exposes the read-side snapshot published by the refresh loop.
type SnapshotSource interface {
	Snapshot() *refresh.Snapshot
}

// Translator is the part of the translation manager the API needs.
type Translator interface {
	TranslateText(ctx context.Context, text string) (string, error)
	ProcessUntranslated(ctx context.Context, limit int) (translation.SweepStats, error)
}

type Options struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	SweepLimit      int
	DisplayTimezone string
}

type Server struct {
	store      store.Store
	snapshots  SnapshotSource
	translator Translator
	displayLoc *time.Location
	logger     zerolog.Logger
	opts       Options
}

func NewServer(st store.Store, snapshots SnapshotSource, translator Translator, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8080
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	sweepLimit := opts.SweepLimit
	if sweepLimit <= 0 {
		sweepLimit = 5
	}

	displayLoc, err := time.LoadLocation(strings.TrimSpace(opts.DisplayTimezone))
	if err != nil || strings.TrimSpace(opts.DisplayTimezone) == "" {
		displayLoc = time.UTC
	}

	return &Server{
		store:      st,
		snapshots:  snapshots,
		translator: translator,
		displayLoc: displayLoc,
		logger:     logger,
		opts: Options{
			Host:            host,
			Port:            port,
			ReadTimeout:     readTimeout,
			WriteTimeout:    writeTimeout,
			ShutdownTimeout: shutdownTimeout,
			SweepLimit:      sweepLimit,
			DisplayTimezone: opts.DisplayTimezone,
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.buildEcho()

	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("newsdesk web server started")
	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("newsdesk web server stopped")
	return nil
}

func (s *Server) buildEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	api := e.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/stats", s.handleStats)
	api.GET("/news", s.handleNews)
	api.GET("/news/:category", s.handleNewsByCategory)
	api.POST("/translate", s.handleTranslate)
	api.POST("/translate_pending", s.handleTranslatePending)

	return e
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if status >= 500 {
		_ = internalError(c, "Internal server error")
		return
	}
	_ = fail(c, status, message, nil)
}

func (s *Server) handleHealth(c echo.Context) error {
	database := "connected"
	if _, err := s.store.CountByStatus(c.Request().Context()); err != nil {
		s.logger.Warn().Err(err).Msg("health store probe failed")
		database = "unavailable"
	}
	return success(c, map[string]any{
		"service":  "newsdesk",
		"database": database,
		"time":     globaltime.UTC(),
	})
}

func (s *Server) handleStats(c echo.Context) error {
	stats, err := s.store.CountByStatus(c.Request().Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("query stats failed")
		return internalError(c, "Failed to load stats")
	}

	payload := map[string]any{
		"total_articles":      stats.Total,
		"translated_articles": stats.Translated,
		"pending_translation": stats.Pending,
	}
	if s.snapshots != nil {
		if snap := s.snapshots.Snapshot(); !snap.LastUpdate.IsZero() {
			payload["last_update"] = snap.LastUpdate
		}
	}
	return success(c, payload)
}

func (s *Server) handleNews(c echo.Context) error {
	snap := s.snapshot()

	// The store stays authoritative; the snapshot only covers store outages
	// and carries the last refresh time.
	records, err := s.store.ListLatest(c.Request().Context(), defaultListLimit)
	if err != nil {
		s.logger.Error().Err(err).Msg("query latest news failed, serving snapshot")
		records = snap.Records
	}

	if strings.EqualFold(strings.TrimSpace(c.QueryParam("view")), "flat") {
		lines := make([]string, 0, len(records))
		for _, rec := range records {
			lines = append(lines, s.displayLine(rec))
		}
		return success(c, map[string]any{
			"news":        lines,
			"count":       len(lines),
			"last_update": lastUpdateValue(snap),
		})
	}

	buckets := map[string][]store.Record{
		feed.CategoryCrypto:  {},
		feed.CategoryGeneral: {},
	}
	for _, rec := range records {
		category := rec.Category
		if _, known := buckets[category]; !known {
			category = feed.CategoryGeneral
		}
		buckets[category] = append(buckets[category], rec)
	}

	return success(c, map[string]any{
		"crypto":      buckets[feed.CategoryCrypto],
		"general":     buckets[feed.CategoryGeneral],
		"count":       len(records),
		"last_update": lastUpdateValue(snap),
	})
}

func (s *Server) handleNewsByCategory(c echo.Context) error {
	category := strings.ToLower(strings.TrimSpace(c.Param("category")))
	if category != feed.CategoryCrypto && category != feed.CategoryGeneral {
		return failValidation(c, map[string]string{
			"category": fmt.Sprintf("unknown category %q", category),
		})
	}

	limit, err := parsePositiveInt(c.QueryParam("limit"), defaultListLimit, 1, maxListLimit)
	if err != nil {
		return failValidation(c, map[string]string{"limit": err.Error()})
	}

	records, err := s.store.ListLatestByCategory(c.Request().Context(), category, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("category", category).Msg("query category news failed")
		return internalError(c, "Failed to load news")
	}

	return success(c, map[string]any{
		"category": category,
		"news":     records,
		"count":    len(records),
	})
}

type translateRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleTranslate(c echo.Context) error {
	if s.translator == nil {
		return internalError(c, "Translation is not configured")
	}

	var req translateRequest
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "invalid JSON body"})
	}
	if strings.TrimSpace(req.Text) == "" {
		return failValidation(c, map[string]string{"text": "text is required"})
	}

	translated, err := s.translator.TranslateText(c.Request().Context(), req.Text)
	if err != nil {
		s.logger.Error().Err(err).Msg("translate request failed")
		return internalError(c, "Translation failed")
	}

	return success(c, map[string]any{
		"original_text":   req.Text,
		"translated_text": translated,
	})
}

type translatePendingRequest struct {
	Limit int `json:"limit"`
}

func (s *Server) handleTranslatePending(c echo.Context) error {
	if s.translator == nil {
		return internalError(c, "Translation is not configured")
	}

	req := translatePendingRequest{Limit: s.opts.SweepLimit}
	if err := c.Bind(&req); err != nil {
		return failValidation(c, map[string]string{"body": "invalid JSON body"})
	}
	if req.Limit <= 0 {
		req.Limit = s.opts.SweepLimit
	}
	if req.Limit > maxListLimit {
		req.Limit = maxListLimit
	}

	stats, err := s.translator.ProcessUntranslated(c.Request().Context(), req.Limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("pending translation sweep failed")
		return internalError(c, "Translation sweep failed")
	}

	return success(c, map[string]any{
		"requested_count": stats.Requested,
		"processed_count": stats.Processed,
		"failed_count":    stats.Failed,
	})
}

func (s *Server) snapshot() *refresh.Snapshot {
	if s.snapshots == nil {
		return &refresh.Snapshot{}
	}
	return s.snapshots.Snapshot()
}

// displayLine renders one record as a compact chat-style line, preferring
// translated fields when present.
func (s *Server) displayLine(rec store.Record) string {
	title := rec.TranslatedTitle
	if strings.TrimSpace(title) == "" {
		title = rec.Title
	}
	description := rec.TranslatedDescription
	if strings.TrimSpace(description) == "" {
		description = rec.Description
	}
	return textutil.Line(title, newstime.Clock(rec.Published, s.displayLoc), description)
}

func lastUpdateValue(snap *refresh.Snapshot) any {
	if snap == nil || snap.LastUpdate.IsZero() {
		return nil
	}
	return snap.LastUpdate
}

func parsePositiveInt(raw string, fallback, minimum, maximum int) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	if value < minimum || value > maximum {
		return 0, fmt.Errorf("must be between %d and %d", minimum, maximum)
	}
	return value, nil
}
