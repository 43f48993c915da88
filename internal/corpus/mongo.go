package corpus

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"college-chatbot-platform/models"
)

// MongoStore implements QAStore, DocumentStore and GapStore over a
// single database.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

func (s *MongoStore) qa() *mongo.Collection        { return s.db.Collection("qa_entries") }
func (s *MongoStore) documents() *mongo.Collection { return s.db.Collection("documents") }
func (s *MongoStore) ingested() *mongo.Collection  { return s.db.Collection("ingested_files") }
func (s *MongoStore) gaps() *mongo.Collection      { return s.db.Collection("unresolved_queries") }

func (s *MongoStore) ListByDomain(ctx context.Context, domain models.Category) ([]models.QAEntry, error) {
	cursor, err := s.qa().Find(ctx, bson.M{"domain": domain})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.QAEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *MongoStore) ListAll(ctx context.Context) ([]models.QAEntry, error) {
	cursor, err := s.qa().Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.QAEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *MongoStore) Insert(ctx context.Context, entry models.QAEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now().UTC()
	}
	_, err := s.qa().InsertOne(ctx, entry)
	return err
}

func (s *MongoStore) ListDocuments(ctx context.Context) ([]models.Document, error) {
	cursor, err := s.documents().Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []models.Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (s *MongoStore) InsertDocument(ctx context.Context, doc models.Document) error {
	// Keyed on source so re-importing a changed file replaces the old
	// version instead of duplicating it.
	_, err := s.documents().ReplaceOne(
		ctx,
		bson.M{"source": doc.Source},
		doc,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (s *MongoStore) HasIngested(ctx context.Context, source, contentHash string) (bool, error) {
	count, err := s.ingested().CountDocuments(ctx, bson.M{"source": source, "content_hash": contentHash})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *MongoStore) MarkIngested(ctx context.Context, source, contentHash string) error {
	_, err := s.ingested().UpdateOne(
		ctx,
		bson.M{"source": source},
		bson.M{"$set": bson.M{
			"content_hash": contentHash,
			"ingested_at":  time.Now().UTC(),
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *MongoStore) Record(ctx context.Context, gap models.UnresolvedQuery) error {
	if gap.ID == "" {
		gap.ID = uuid.NewString()
	}
	if gap.Timestamp.IsZero() {
		gap.Timestamp = time.Now().UTC()
	}
	if gap.Status == "" {
		gap.Status = "unresolved"
	}

	// Re-asking the same question refreshes the record in place.
	_, err := s.gaps().UpdateOne(
		ctx,
		bson.M{"query": gap.Query},
		bson.M{
			"$set": bson.M{
				"category":       gap.Category,
				"lookup_score":   gap.LookupScore,
				"rag_confidence": gap.RAGConfidence,
				"timestamp":      gap.Timestamp,
			},
			"$setOnInsert": bson.M{
				"_id":    gap.ID,
				"status": gap.Status,
			},
		},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *MongoStore) ListUnresolved(ctx context.Context, limit int) ([]models.UnresolvedQuery, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.gaps().Find(ctx, bson.M{"status": "unresolved"}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var gaps []models.UnresolvedQuery
	if err := cursor.All(ctx, &gaps); err != nil {
		return nil, err
	}
	return gaps, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (models.UnresolvedQuery, error) {
	var gap models.UnresolvedQuery
	err := s.gaps().FindOne(ctx, bson.M{"_id": id}).Decode(&gap)
	if err == mongo.ErrNoDocuments {
		return gap, ErrNotFound
	}
	return gap, err
}

func (s *MongoStore) MarkPromoted(ctx context.Context, id string) error {
	result, err := s.gaps().UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": "promoted"}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
