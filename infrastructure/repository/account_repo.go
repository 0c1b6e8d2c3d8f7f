package repository

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rewardsfarmer-go/domain/account"
)

const accountCollection = "account"

// accountDocument is the MongoDB document structure for accounts.
type accountDocument struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Username string             `bson:"username"`
	Password string             `bson:"password"`
	Proxy    string             `bson:"proxy,omitempty"`
	Disabled bool               `bson:"disabled,omitempty"`
}

// MongoAccountRepository implements account.Repository using MongoDB.
type MongoAccountRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoAccountRepository creates a new MongoDB-based account repository.
func NewMongoAccountRepository(db *MongoDB, logger *slog.Logger) *MongoAccountRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoAccountRepository{
		collection: db.Collection(accountCollection),
		logger:     logger,
	}
}

// FindAll retrieves all accounts that are not disabled.
func (r *MongoAccountRepository) FindAll(ctx context.Context) ([]account.Account, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"disabled": bson.M{"$ne": true}})
	if err != nil {
		return nil, fmt.Errorf("failed to find accounts: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []accountDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode accounts: %w", err)
	}

	accounts := make([]account.Account, len(docs))
	for i := range docs {
		accounts[i] = documentToAccount(&docs[i])
	}

	r.logger.Debug("Loaded accounts from MongoDB", "count", len(accounts))
	return accounts, nil
}

// Upsert inserts the account or replaces the credentials of an existing one with the same username.
func (r *MongoAccountRepository) Upsert(ctx context.Context, acc account.Account) error {
	doc := accountToDocument(acc)
	filter := bson.M{"username": doc.Username}
	update := bson.M{"$set": bson.M{
		"username": doc.Username,
		"password": doc.Password,
		"proxy":    doc.Proxy,
	}}

	if _, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to upsert account %s: %w", acc.Username, err)
	}
	return nil
}

func documentToAccount(doc *accountDocument) account.Account {
	return account.Account{
		Username: doc.Username,
		Password: doc.Password,
		Proxy:    doc.Proxy,
	}
}

func accountToDocument(acc account.Account) *accountDocument {
	return &accountDocument{
		Username: acc.Username,
		Password: acc.Password,
		Proxy:    acc.Proxy,
	}
}

// Ensure MongoAccountRepository implements account.Repository
var _ account.Repository = (*MongoAccountRepository)(nil)
