package config

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(cfg *Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %v", err)
	}

	// Test connection
	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %v", err)
	}

	// Create indexes
	err = createIndexes(client, cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes: %v", err)
	}

	return client, nil
}

func createIndexes(client *mongo.Client, dbName string) error {
	db := client.Database(dbName)

	// QA entries: domain lookups during index rebuilds, question dedupe
	qaCollection := db.Collection("qa_entries")
	qaIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "domain", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "question", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := qaCollection.Indexes().CreateMany(context.Background(), qaIndexes)
	if err != nil {
		return err
	}

	// Unresolved queries: review listing is newest-first per status
	unresolvedCollection := db.Collection("unresolved_queries")
	unresolvedIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "timestamp", Value: -1}},
		},
		{
			Keys:    bson.D{{Key: "query", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err = unresolvedCollection.Indexes().CreateMany(context.Background(), unresolvedIndexes)
	if err != nil {
		return err
	}

	// Documents: chunk rebuilds iterate per source
	documentsCollection := db.Collection("documents")
	documentIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "source", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "doc_type", Value: 1}},
		},
	}
	_, err = documentsCollection.Indexes().CreateMany(context.Background(), documentIndexes)
	if err != nil {
		return err
	}

	return nil
}
