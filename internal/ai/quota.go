package ai

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UsageSink receives the per-call token counts the client observes.
type UsageSink interface {
	RecordUsage(ctx context.Context, tokens, requests int)
}

// MongoUsageSink persists usage through RecordDailyUsage. Write
// failures are logged and never surface to the caller.
type MongoUsageSink struct {
	db *mongo.Database
}

func NewMongoUsageSink(db *mongo.Database) *MongoUsageSink {
	return &MongoUsageSink{db: db}
}

func (s *MongoUsageSink) RecordUsage(ctx context.Context, tokens, requests int) {
	if err := RecordDailyUsage(ctx, s.db, tokens, requests); err != nil {
		log.Printf("Failed to record AI usage: %v", err)
	}
}

// DailyUsage tracks Gemini token and request consumption per day so
// operators can see API spend alongside query stats.
type DailyUsage struct {
	Date       time.Time `bson:"date" json:"date"`
	TokensUsed int       `bson:"tokens_used" json:"tokens_used"`
	Requests   int       `bson:"requests" json:"requests"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updated_at"`
}

// RecordDailyUsage increments today's usage counters. Best effort: a
// failed write is returned for logging but never blocks a query.
func RecordDailyUsage(ctx context.Context, db *mongo.Database, tokens, requests int) error {
	col := db.Collection("ai_usage")

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	_, err := col.UpdateOne(
		ctx,
		bson.M{"date": today},
		bson.M{
			"$inc": bson.M{
				"tokens_used": tokens,
				"requests":    requests,
			},
			"$set": bson.M{
				"updated_at": now,
			},
		},
		options.Update().SetUpsert(true),
	)

	return err
}

// GetUsageHistory returns the most recent daily usage records, newest
// first.
func GetUsageHistory(ctx context.Context, db *mongo.Database, days int) ([]DailyUsage, error) {
	col := db.Collection("ai_usage")

	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}}).
		SetLimit(int64(days))

	cursor, err := col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var usage []DailyUsage
	if err := cursor.All(ctx, &usage); err != nil {
		return nil, err
	}
	return usage, nil
}
