package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/m2tx/benchagent/internal/model"
)

// MongoTranscriptRepository implements TranscriptRepository using MongoDB.
type MongoTranscriptRepository struct {
	collection *mongo.Collection
}

// NewMongoTranscriptRepository creates a new MongoTranscriptRepository.
// collectionName defaults to "transcripts" if empty.
func NewMongoTranscriptRepository(db *mongo.Database, collectionName string) *MongoTranscriptRepository {
	if collectionName == "" {
		collectionName = "transcripts"
	}
	return &MongoTranscriptRepository{
		collection: db.Collection(collectionName),
	}
}

func (r *MongoTranscriptRepository) Save(ctx context.Context, transcript *model.Transcript) error {
	if transcript == nil || transcript.TaskID == "" {
		return ErrMissingTaskID
	}

	filter := bson.M{"_id": transcript.TaskID}
	update := bson.M{"$set": transcript}
	opts := options.Update().SetUpsert(true)

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("repository: upsert transcript %q: %w", transcript.TaskID, err)
	}

	return nil
}

func (r *MongoTranscriptRepository) Load(ctx context.Context, taskID string) (*model.Transcript, error) {
	filter := bson.M{"_id": taskID}

	var doc model.Transcript
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("repository: find transcript %q: %w", taskID, err)
	}

	return &doc, nil
}

func (r *MongoTranscriptRepository) Delete(ctx context.Context, taskID string) error {
	filter := bson.M{"_id": taskID}

	_, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("repository: delete transcript %q: %w", taskID, err)
	}

	return nil
}
