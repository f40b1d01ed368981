package knowledge

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoStore keeps chunks in a MongoDB collection keyed by fingerprint.
// Ranking happens client side.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore creates a new MongoStore.
// collectionName defaults to "knowledge" if empty.
func NewMongoStore(db *mongo.Database, collectionName string) *MongoStore {
	if collectionName == "" {
		collectionName = "knowledge"
	}
	return &MongoStore{
		collection: db.Collection(collectionName),
	}
}

func (s *MongoStore) Add(ctx context.Context, chunks []Chunk) (int, error) {
	added := 0
	for _, c := range chunks {
		_, err := s.collection.InsertOne(ctx, c)
		if mongo.IsDuplicateKeyError(err) {
			continue
		}
		if err != nil {
			return added, fmt.Errorf("knowledge: insert chunk %s: %w", c.ID, err)
		}
		added++
	}
	return added, nil
}

func (s *MongoStore) Query(ctx context.Context, vector []float32, n int, minScore float32) ([]Match, error) {
	cursor, err := s.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("knowledge: find chunks: %w", err)
	}

	var chunks []Chunk
	if err := cursor.All(ctx, &chunks); err != nil {
		return nil, fmt.Errorf("knowledge: decode chunks: %w", err)
	}

	return rank(vector, chunks, n, minScore), nil
}
