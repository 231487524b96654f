package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"horse.fit/newsdesk/internal/config"
	"horse.fit/newsdesk/internal/globaltime"
)

// newsRow maps the news table shared by the SQLite and Postgres backends.
type newsRow struct {
	ID                    int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Title                 string `gorm:"column:title;not null"`
	Link                  string `gorm:"column:link;not null;uniqueIndex:idx_news_link"`
	Description           string `gorm:"column:description"`
	Published             string `gorm:"column:published;index:idx_news_published"`
	Source                string `gorm:"column:source"`
	Category              string `gorm:"column:category;index:idx_news_category"`
	TranslatedTitle       string `gorm:"column:translated_title"`
	TranslatedDescription string `gorm:"column:translated_description"`
	TranslationStatus     string `gorm:"column:translation_status;default:pending;index:idx_news_translation_status"`
	CreatedAt             int64  `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt             int64  `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (newsRow) TableName() string { return "news" }

type gormStore struct {
	gdb    *gorm.DB
	logger zerolog.Logger
}

func openGorm(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (Store, error) {
	var dialector gorm.Dialector
	switch cfg.Backend() {
	case config.BackendSQLite:
		dialector = sqlite.Open(cfg.SQLitePath)
	case config.BackendPostgres:
		dialector = postgres.Open(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported relational backend %q", cfg.StoreBackend)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger:  gormlogger.Default.LogMode(resolveGormLogLevel(cfg.LogLevel, cfg.Environment)),
		NowFunc: globaltime.UTC,
	})
	if err != nil {
		return nil, fmt.Errorf("open gorm database: %w", err)
	}

	if err := gdb.WithContext(ctx).AutoMigrate(&newsRow{}); err != nil {
		return nil, fmt.Errorf("auto-migrate news table: %w", err)
	}

	return &gormStore{gdb: gdb, logger: logger.With().Str("component", "store").Logger()}, nil
}

func (s *gormStore) Exists(ctx context.Context, link string) (bool, error) {
	if s == nil || s.gdb == nil {
		return false, fmt.Errorf("store is not initialized")
	}
	var count int64
	res := s.gdb.WithContext(ctx).Model(&newsRow{}).Where("link = ?", link).Count(&count)
	if res.Error != nil {
		return false, fmt.Errorf("check link existence: %w", res.Error)
	}
	return count > 0, nil
}

func (s *gormStore) InsertOne(ctx context.Context, rec Record) (bool, error) {
	if s == nil || s.gdb == nil {
		return false, fmt.Errorf("store is not initialized")
	}
	row := rowFromRecord(rec)
	res := s.gdb.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "link"}}, DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return false, fmt.Errorf("insert record: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *gormStore) InsertMany(ctx context.Context, recs []Record) (int, error) {
	if s == nil || s.gdb == nil {
		return 0, fmt.Errorf("store is not initialized")
	}
	inserted := 0
	for _, rec := range recs {
		ok, err := s.InsertOne(ctx, rec)
		if err != nil {
			return inserted, err
		}
		if ok {
			inserted++
		}
	}
	return inserted, nil
}

func (s *gormStore) UpdateTranslation(ctx context.Context, link, title, description string) (bool, error) {
	if s == nil || s.gdb == nil {
		return false, fmt.Errorf("store is not initialized")
	}
	updates := map[string]any{}
	if strings.TrimSpace(title) != "" {
		updates["translated_title"] = title
	}
	if strings.TrimSpace(description) != "" {
		updates["translated_description"] = description
	}
	// No fields means nothing to record; the record stays pending.
	if len(updates) == 0 {
		return false, nil
	}
	updates["translation_status"] = StatusCompleted
	updates["updated_at"] = globaltime.UTC().Unix()
	res := s.gdb.WithContext(ctx).Model(&newsRow{}).Where("link = ?", link).Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("update translation: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *gormStore) ListUntranslated(ctx context.Context, limit int) ([]Record, error) {
	if s == nil || s.gdb == nil {
		return nil, fmt.Errorf("store is not initialized")
	}
	var rows []newsRow
	res := s.gdb.WithContext(ctx).
		Where("translation_status = ? OR translated_title = '' OR translated_title IS NULL", StatusPending).
		Order("published DESC, id DESC").
		Limit(limit).
		Find(&rows)
	if res.Error != nil {
		return nil, fmt.Errorf("list untranslated: %w", res.Error)
	}
	return recordsFromRows(rows), nil
}

func (s *gormStore) ListLatest(ctx context.Context, limit int) ([]Record, error) {
	if s == nil || s.gdb == nil {
		return nil, fmt.Errorf("store is not initialized")
	}
	var rows []newsRow
	res := s.gdb.WithContext(ctx).
		Order("published DESC, id DESC").
		Limit(limit).
		Find(&rows)
	if res.Error != nil {
		return nil, fmt.Errorf("list latest: %w", res.Error)
	}
	return recordsFromRows(rows), nil
}

func (s *gormStore) ListLatestByCategory(ctx context.Context, category string, limit int) ([]Record, error) {
	if s == nil || s.gdb == nil {
		return nil, fmt.Errorf("store is not initialized")
	}
	var rows []newsRow
	res := s.gdb.WithContext(ctx).
		Where("category = ?", category).
		Order("published DESC, id DESC").
		Limit(limit).
		Find(&rows)
	if res.Error != nil {
		return nil, fmt.Errorf("list latest by category: %w", res.Error)
	}
	return recordsFromRows(rows), nil
}

func (s *gormStore) CountByStatus(ctx context.Context) (Stats, error) {
	if s == nil || s.gdb == nil {
		return Stats{}, fmt.Errorf("store is not initialized")
	}
	var stats Stats
	if res := s.gdb.WithContext(ctx).Model(&newsRow{}).Count(&stats.Total); res.Error != nil {
		return Stats{}, fmt.Errorf("count records: %w", res.Error)
	}
	if res := s.gdb.WithContext(ctx).Model(&newsRow{}).
		Where("translation_status = ?", StatusCompleted).
		Count(&stats.Translated); res.Error != nil {
		return Stats{}, fmt.Errorf("count translated: %w", res.Error)
	}
	stats.Pending = stats.Total - stats.Translated
	return stats, nil
}

func (s *gormStore) LatestPublished(ctx context.Context) (string, error) {
	if s == nil || s.gdb == nil {
		return "", fmt.Errorf("store is not initialized")
	}
	var row newsRow
	res := s.gdb.WithContext(ctx).Order("published DESC, id DESC").First(&row)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("latest published: %w", res.Error)
	}
	return row.Published, nil
}

func (s *gormStore) FindByLink(ctx context.Context, link string) (Record, error) {
	if s == nil || s.gdb == nil {
		return Record{}, fmt.Errorf("store is not initialized")
	}
	var row newsRow
	res := s.gdb.WithContext(ctx).Where("link = ?", link).First(&row)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("find by link: %w", res.Error)
	}
	return recordFromRow(row), nil
}

func (s *gormStore) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if s == nil || s.gdb == nil {
		return 0, fmt.Errorf("store is not initialized")
	}
	if days <= 0 {
		return 0, nil
	}
	cutoff := globaltime.UTC().AddDate(0, 0, -days).Unix()
	res := s.gdb.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&newsRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge old records: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		s.logger.Info().Int64("removed", res.RowsAffected).Int("retention_days", days).Msg("purged old records")
	}
	return res.RowsAffected, nil
}

func (s *gormStore) Close() error {
	if s == nil || s.gdb == nil {
		return nil
	}
	sqlDB, err := s.gdb.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.Close()
}

func rowFromRecord(rec Record) newsRow {
	status := rec.TranslationStatus
	if strings.TrimSpace(status) == "" {
		status = StatusPending
	}
	now := globaltime.UTC().Unix()
	createdAt := now
	if !rec.CreatedAt.IsZero() {
		createdAt = rec.CreatedAt.UTC().Unix()
	}
	return newsRow{
		Title:                 rec.Title,
		Link:                  rec.Link,
		Description:           rec.Description,
		Published:             rec.Published,
		Source:                rec.Source,
		Category:              rec.Category,
		TranslatedTitle:       rec.TranslatedTitle,
		TranslatedDescription: rec.TranslatedDescription,
		TranslationStatus:     status,
		CreatedAt:             createdAt,
		UpdatedAt:             now,
	}
}

func recordFromRow(row newsRow) Record {
	rec := Record{
		Title:                 row.Title,
		Link:                  row.Link,
		Description:           row.Description,
		Published:             row.Published,
		Source:                row.Source,
		Category:              row.Category,
		TranslatedTitle:       row.TranslatedTitle,
		TranslatedDescription: row.TranslatedDescription,
		TranslationStatus:     row.TranslationStatus,
	}
	if row.CreatedAt > 0 {
		rec.CreatedAt = unixUTC(row.CreatedAt)
	}
	if row.UpdatedAt > 0 {
		rec.UpdatedAt = unixUTC(row.UpdatedAt)
	}
	return rec
}

func recordsFromRows(rows []newsRow) []Record {
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, recordFromRow(row))
	}
	return records
}

func unixUTC(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func resolveGormLogLevel(appLogLevel, environment string) gormlogger.LogLevel {
	level := strings.ToLower(strings.TrimSpace(appLogLevel))
	switch level {
	case "trace", "debug":
		return gormlogger.Info
	case "warn", "warning", "info", "":
		return gormlogger.Warn
	case "error":
		return gormlogger.Error
	case "silent":
		return gormlogger.Silent
	default:
		if strings.EqualFold(strings.TrimSpace(environment), "local") {
			return gormlogger.Warn
		}
		return gormlogger.Error
	}
}
