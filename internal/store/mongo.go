package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"horse.fit/newsdesk/internal/config"
	"horse.fit/newsdesk/internal/globaltime"
)

const newsCollection = "news"

// newsDoc maps a document in the news collection.
type newsDoc struct {
	Title                 string    `bson:"title"`
	Link                  string    `bson:"link"`
	Description           string    `bson:"description,omitempty"`
	Published             string    `bson:"published,omitempty"`
	Source                string    `bson:"source,omitempty"`
	Category              string    `bson:"category,omitempty"`
	TranslatedTitle       string    `bson:"translated_title,omitempty"`
	TranslatedDescription string    `bson:"translated_description,omitempty"`
	TranslationStatus     string    `bson:"translation_status"`
	CreatedAt             time.Time `bson:"created_at"`
	UpdatedAt             time.Time `bson:"updated_at"`
}

type mongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger zerolog.Logger
}

func openMongo(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (Store, error) {
	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetServerSelectionTimeout(5 * time.Second).
		SetSocketTimeout(10 * time.Second).
		SetConnectTimeout(5 * time.Second).
		SetMaxPoolSize(10)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	coll := client.Database(cfg.MongoDatabase).Collection(newsCollection)
	s := &mongoStore{
		client: client,
		coll:   coll,
		logger: logger.With().Str("component", "store").Logger(),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *mongoStore) ensureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "link", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "published", Value: -1}}},
		{Keys: bson.D{{Key: "translation_status", Value: 1}, {Key: "published", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "published", Value: -1}}},
	}
	if _, err := s.coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

func (s *mongoStore) Exists(ctx context.Context, link string) (bool, error) {
	if s == nil || s.coll == nil {
		return false, fmt.Errorf("store is not initialized")
	}
	count, err := s.coll.CountDocuments(ctx, bson.M{"link": link}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check link existence: %w", err)
	}
	return count > 0, nil
}

func (s *mongoStore) InsertOne(ctx context.Context, rec Record) (bool, error) {
	if s == nil || s.coll == nil {
		return false, fmt.Errorf("store is not initialized")
	}
	if _, err := s.coll.InsertOne(ctx, docFromRecord(rec)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert record: %w", err)
	}
	return true, nil
}

func (s *mongoStore) InsertMany(ctx context.Context, recs []Record) (int, error) {
	if s == nil || s.coll == nil {
		return 0, fmt.Errorf("store is not initialized")
	}
	if len(recs) == 0 {
		return 0, nil
	}

	docs := make([]any, 0, len(recs))
	for _, rec := range recs {
		docs = append(docs, docFromRecord(rec))
	}

	res, err := s.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	inserted := 0
	if res != nil {
		inserted = len(res.InsertedIDs)
	}
	if err != nil {
		// Unordered inserts keep going past duplicate keys; only real
		// failures surface.
		var bulkErr mongo.BulkWriteException
		if errors.As(err, &bulkErr) {
			for _, writeErr := range bulkErr.WriteErrors {
				if !mongo.IsDuplicateKeyError(writeErr) {
					return inserted, fmt.Errorf("insert batch: %w", err)
				}
			}
			return inserted, nil
		}
		return inserted, fmt.Errorf("insert batch: %w", err)
	}
	return inserted, nil
}

func (s *mongoStore) UpdateTranslation(ctx context.Context, link, title, description string) (bool, error) {
	if s == nil || s.coll == nil {
		return false, fmt.Errorf("store is not initialized")
	}
	set := bson.M{}
	if strings.TrimSpace(title) != "" {
		set["translated_title"] = title
	}
	if strings.TrimSpace(description) != "" {
		set["translated_description"] = description
	}
	// No fields means nothing to record; the document stays pending.
	if len(set) == 0 {
		return false, nil
	}
	set["translation_status"] = StatusCompleted
	set["updated_at"] = globaltime.UTC()
	res, err := s.coll.UpdateOne(ctx, bson.M{"link": link}, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("update translation: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (s *mongoStore) ListUntranslated(ctx context.Context, limit int) ([]Record, error) {
	if s == nil || s.coll == nil {
		return nil, fmt.Errorf("store is not initialized")
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "published", Value: -1}}).
		SetLimit(int64(limit))
	filter := bson.M{"$or": bson.A{
		bson.M{"translation_status": StatusPending},
		bson.M{"translated_title": bson.M{"$exists": false}},
		bson.M{"translated_title": ""},
	}}
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list untranslated: %w", err)
	}
	return decodeRecords(ctx, cursor)
}

func (s *mongoStore) ListLatest(ctx context.Context, limit int) ([]Record, error) {
	if s == nil || s.coll == nil {
		return nil, fmt.Errorf("store is not initialized")
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "published", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list latest: %w", err)
	}
	return decodeRecords(ctx, cursor)
}

func (s *mongoStore) ListLatestByCategory(ctx context.Context, category string, limit int) ([]Record, error) {
	if s == nil || s.coll == nil {
		return nil, fmt.Errorf("store is not initialized")
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "published", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := s.coll.Find(ctx, bson.M{"category": category}, opts)
	if err != nil {
		return nil, fmt.Errorf("list latest by category: %w", err)
	}
	return decodeRecords(ctx, cursor)
}

func (s *mongoStore) CountByStatus(ctx context.Context) (Stats, error) {
	if s == nil || s.coll == nil {
		return Stats{}, fmt.Errorf("store is not initialized")
	}
	var stats Stats
	total, err := s.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return Stats{}, fmt.Errorf("count records: %w", err)
	}
	translated, err := s.coll.CountDocuments(ctx, bson.M{"translation_status": StatusCompleted})
	if err != nil {
		return Stats{}, fmt.Errorf("count translated: %w", err)
	}
	stats.Total = total
	stats.Translated = translated
	stats.Pending = total - translated
	return stats, nil
}

func (s *mongoStore) LatestPublished(ctx context.Context) (string, error) {
	if s == nil || s.coll == nil {
		return "", fmt.Errorf("store is not initialized")
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "published", Value: -1}})
	var doc newsDoc
	if err := s.coll.FindOne(ctx, bson.M{}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", nil
		}
		return "", fmt.Errorf("latest published: %w", err)
	}
	return doc.Published, nil
}

func (s *mongoStore) FindByLink(ctx context.Context, link string) (Record, error) {
	if s == nil || s.coll == nil {
		return Record{}, fmt.Errorf("store is not initialized")
	}
	var doc newsDoc
	if err := s.coll.FindOne(ctx, bson.M{"link": link}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("find by link: %w", err)
	}
	return recordFromDoc(doc), nil
}

func (s *mongoStore) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if s == nil || s.coll == nil {
		return 0, fmt.Errorf("store is not initialized")
	}
	if days <= 0 {
		return 0, nil
	}
	cutoff := globaltime.UTC().AddDate(0, 0, -days)
	res, err := s.coll.DeleteMany(ctx, bson.M{"created_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("purge old records: %w", err)
	}
	if res.DeletedCount > 0 {
		s.logger.Info().Int64("removed", res.DeletedCount).Int("retention_days", days).Msg("purged old records")
	}
	return res.DeletedCount, nil
}

func (s *mongoStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func docFromRecord(rec Record) newsDoc {
	status := rec.TranslationStatus
	if strings.TrimSpace(status) == "" {
		status = StatusPending
	}
	now := globaltime.UTC()
	createdAt := now
	if !rec.CreatedAt.IsZero() {
		createdAt = rec.CreatedAt.UTC()
	}
	return newsDoc{
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

func recordFromDoc(doc newsDoc) Record {
	return Record{
		Title:                 doc.Title,
		Link:                  doc.Link,
		Description:           doc.Description,
		Published:             doc.Published,
		Source:                doc.Source,
		Category:              doc.Category,
		TranslatedTitle:       doc.TranslatedTitle,
		TranslatedDescription: doc.TranslatedDescription,
		TranslationStatus:     doc.TranslationStatus,
		CreatedAt:             doc.CreatedAt,
		UpdatedAt:             doc.UpdatedAt,
	}
}

func decodeRecords(ctx context.Context, cursor *mongo.Cursor) ([]Record, error) {
	defer cursor.Close(ctx)
	records := make([]Record, 0)
	for cursor.Next(ctx) {
		var doc newsDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		records = append(records, recordFromDoc(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}
