package repository

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"checkin-go/domain/account"
)

// accountDocument is the MongoDB document structure for accounts.
// Cookies is either a string ("a=1; b=2") or an embedded name/value document.
type accountDocument struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Name     string             `bson:"name,omitempty"`
	Provider string             `bson:"provider,omitempty"`
	Cookies  bson.RawValue      `bson:"cookies"`
	APIUser  string             `bson:"api_user"`
	Ranking  int                `bson:"ranking"`
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
		collection: db.Collection(AccountCollection),
		logger:     logger,
	}
}

// FindAll retrieves enabled accounts ordered by ranking, then insertion.
func (r *MongoAccountRepository) FindAll(ctx context.Context) ([]*account.Account, error) {
	filter := bson.M{"disabled": bson.M{"$ne": true}}
	opts := options.Find().SetSort(bson.D{{Key: "ranking", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find accounts: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []accountDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode accounts: %w", err)
	}

	accounts := make([]*account.Account, 0, len(docs))
	for i := range docs {
		acc, err := documentToAccount(&docs[i])
		if err != nil {
			// Keep the position so numbering stays stable; the empty
			// credentials fail that account alone at check-in time.
			r.logger.Warn("Unreadable account cookies", "id", docs[i].ID.Hex(), "error", err)
		}
		accounts = append(accounts, acc)
	}

	r.logger.Debug("Loaded accounts from MongoDB", "count", len(accounts))
	return accounts, nil
}

// documentToAccount converts a MongoDB document to a domain Account.
func documentToAccount(doc *accountDocument) (*account.Account, error) {
	acc := &account.Account{
		Name:     doc.Name,
		Provider: doc.Provider,
		APIUser:  doc.APIUser,
	}

	creds, err := decodeCredentials(doc.Cookies)
	acc.Credentials = creds
	return acc, err
}

// decodeCredentials picks the credential form from the BSON type.
func decodeCredentials(v bson.RawValue) (account.Credentials, error) {
	switch v.Type {
	case bson.TypeString:
		return account.DelimitedCredentials(v.StringValue()), nil
	case bson.TypeEmbeddedDocument:
		var m map[string]string
		if err := v.Unmarshal(&m); err != nil {
			return account.Credentials{}, fmt.Errorf("cookies document: %w", err)
		}
		return account.MappingCredentials(m), nil
	case 0, bson.TypeNull:
		return account.Credentials{}, nil
	default:
		return account.Credentials{}, fmt.Errorf("unsupported cookies type %s", v.Type)
	}
}

// Ensure MongoAccountRepository implements account.Repository
var _ account.Repository = (*MongoAccountRepository)(nil)
