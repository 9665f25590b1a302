// mongodb.go - MongoDB storage for provider attempt audit entries

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bosocmputer/expense_ai_gateway/internal/models"
)

// AuditCollection holds one document per provider attempt.
const AuditCollection = "ai_audit_log"

// AuditRetention is how long entries are kept before the TTL index
// removes them.
const AuditRetention = 30 * 24 * time.Hour

const writeTimeout = 5 * time.Second

// AuditStore writes audit entries to MongoDB.
type AuditStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// ConnectMongo connects, pings and prepares the audit collection.
func ConnectMongo(ctx context.Context, uri, dbName string) (*AuditStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	store := NewAuditStore(client, client.Database(dbName))
	if err := store.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Info().Str("database", dbName).Msg("connected to MongoDB")
	return store, nil
}

// NewAuditStore uses an existing client and database.
func NewAuditStore(client *mongo.Client, db *mongo.Database) *AuditStore {
	return &AuditStore{client: client, collection: db.Collection(AuditCollection)}
}

// EnsureIndexes creates the TTL index and the provider lookup index.
func (s *AuditStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(AuditRetention / time.Second)),
		},
		{
			Keys: bson.D{{Key: "provider", Value: 1}, {Key: "timestamp", Value: -1}},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create audit indexes: %w", err)
	}
	return nil
}

// Emit inserts one entry. Failures are logged and never reach the caller.
func (s *AuditStore) Emit(ctx context.Context, entry models.AuditLogEntry) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if _, err := s.collection.InsertOne(ctx, entry); err != nil {
		log.Error().Err(err).Str("provider", entry.Provider).Msg("failed to store audit entry")
	}
}

// Recent returns the latest entries, newest first. An empty provider
// matches every provider.
func (s *AuditStore) Recent(ctx context.Context, provider string, limit int64) ([]models.AuditLogEntry, error) {
	filter := bson.M{}
	if provider != "" {
		filter["provider"] = provider
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit)
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	entries := []models.AuditLogEntry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode audit entries: %w", err)
	}
	return entries, nil
}

// Close disconnects the client.
func (s *AuditStore) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	log.Info().Msg("MongoDB connection closed")
	return nil
}
