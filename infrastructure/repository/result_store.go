package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rewardsfarmer-go/domain/points"
)

const resultCollection = "run_result"

// resultDocument is the MongoDB document structure for run results.
type resultDocument struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	Username       string             `bson:"username"`
	StartingPoints int                `bson:"starting_points"`
	FinalPoints    int                `bson:"final_points"`
	Earned         int                `bson:"earned"`
	Error          string             `bson:"error,omitempty"`
	StartedAt      time.Time          `bson:"started_at"`
	FinishedAt     time.Time          `bson:"finished_at"`
}

// MongoResultStore implements points.ResultStore using MongoDB.
type MongoResultStore struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoResultStore creates a new MongoDB-based result store.
func NewMongoResultStore(db *MongoDB, logger *slog.Logger) *MongoResultStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoResultStore{
		collection: db.Collection(resultCollection),
		logger:     logger,
	}
}

// Save inserts one run result.
func (s *MongoResultStore) Save(ctx context.Context, result points.RunResult) error {
	if _, err := s.collection.InsertOne(ctx, resultToDocument(result)); err != nil {
		return fmt.Errorf("failed to insert run result: %w", err)
	}
	return nil
}

// Recent returns up to limit results, newest first. An empty username matches all accounts.
func (s *MongoResultStore) Recent(ctx context.Context, username string, limit int64) ([]points.RunResult, error) {
	filter := bson.M{}
	if username != "" {
		filter["username"] = username
	}

	opts := options.Find().SetSort(bson.D{{Key: "finished_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find run results: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []resultDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode run results: %w", err)
	}

	results := make([]points.RunResult, len(docs))
	for i := range docs {
		results[i] = documentToResult(&docs[i])
	}
	return results, nil
}

func resultToDocument(r points.RunResult) *resultDocument {
	return &resultDocument{
		Username:       r.Username,
		StartingPoints: r.StartingPoints,
		FinalPoints:    r.FinalPoints,
		Earned:         r.Earned,
		Error:          r.Error,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
	}
}

func documentToResult(doc *resultDocument) points.RunResult {
	return points.RunResult{
		Username:       doc.Username,
		StartingPoints: doc.StartingPoints,
		FinalPoints:    doc.FinalPoints,
		Earned:         doc.Earned,
		Error:          doc.Error,
		StartedAt:      doc.StartedAt,
		FinishedAt:     doc.FinishedAt,
	}
}

// Ensure MongoResultStore implements points.ResultStore
var _ points.ResultStore = (*MongoResultStore)(nil)
