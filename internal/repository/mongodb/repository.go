package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/otabekdev/restockbot/internal/domain/models"
)

// Repository defines the interface for activity-log storage.
type Repository interface {
	RecordActivity(ctx context.Context, record models.ActivityRecord) error
	Summary(ctx context.Context, since time.Time) (models.ActivitySummary, error)
	ListRecent(ctx context.Context, limit int64) ([]models.ActivityRecord, error)
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client:   client,
		dbName:   dbName,
		collName: "activity",
	}, nil
}

// RecordActivity appends one usage event to the log.
func (r *MongoDBRepository) RecordActivity(ctx context.Context, record models.ActivityRecord) error {
	collection := r.client.Database(r.dbName).Collection(r.collName)
	if _, err := collection.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to insert activity record: %w", err)
	}
	return nil
}

// Summary aggregates usage since the given instant.
func (r *MongoDBRepository) Summary(ctx context.Context, since time.Time) (models.ActivitySummary, error) {
	collection := r.client.Database(r.dbName).Collection(r.collName)
	filter := bson.M{"at": bson.M{"$gte": since}}

	events, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return models.ActivitySummary{}, fmt.Errorf("failed to count activity: %w", err)
	}

	chats, err := collection.Distinct(ctx, "chat_id", filter)
	if err != nil {
		return models.ActivitySummary{}, fmt.Errorf("failed to count distinct chats: %w", err)
	}

	completed, err := collection.CountDocuments(ctx, bson.M{
		"at":    bson.M{"$gte": since},
		"event": "completed",
	})
	if err != nil {
		return models.ActivitySummary{}, fmt.Errorf("failed to count completions: %w", err)
	}

	return models.ActivitySummary{
		Since:       since,
		Events:      int(events),
		UniqueChats: len(chats),
		Completed:   int(completed),
	}, nil
}

// ListRecent returns the newest activity records, newest first.
func (r *MongoDBRepository) ListRecent(ctx context.Context, limit int64) ([]models.ActivityRecord, error) {
	collection := r.client.Database(r.dbName).Collection(r.collName)

	opts := options.Find().SetSort(bson.D{{Key: "at", Value: -1}}).SetLimit(limit)
	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer cursor.Close(ctx)

	var records []models.ActivityRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode activity records: %w", err)
	}
	return records, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
