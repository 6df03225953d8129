// Package mongostore is the MongoDB backend for the ledger.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/service"
)

var _ service.Storage = (*Store)(nil)

// Collections names the three collections the ledger uses.
type Collections struct {
	Users        string
	Transactions string
	Categories   string
}

// Options configures a Store.
type Options struct {
	URI            string
	Database       string
	Collections    Collections
	ConnectTimeout time.Duration
}

// Store implements service.Storage on top of a MongoDB database.
type Store struct {
	client       *mongo.Client
	users        *mongo.Collection
	transactions *mongo.Collection
	categories   *mongo.Collection
	timeout      time.Duration
}

// Open creates the client. The driver connects lazily; call Ping to verify the server.
func Open(opts Options) (*Store, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("%w: mongo uri", common.ErrMissingConfig)
	}
	if opts.Database == "" {
		return nil, fmt.Errorf("%w: mongo database name", common.ErrMissingConfig)
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	opts.Collections = opts.Collections.withDefaults()

	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetServerAPIOptions(serverAPI).
		SetConnectTimeout(opts.ConnectTimeout).
		SetServerSelectionTimeout(opts.ConnectTimeout)

	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w: %v", common.ErrStorage, err)
	}

	db := client.Database(opts.Database)
	return &Store{
		client:       client,
		users:        db.Collection(opts.Collections.Users),
		transactions: db.Collection(opts.Collections.Transactions),
		categories:   db.Collection(opts.Collections.Categories),
		timeout:      opts.ConnectTimeout,
	}, nil
}

func (c Collections) withDefaults() Collections {
	if c.Users == "" {
		c.Users = "users"
	}
	if c.Transactions == "" {
		c.Transactions = "transactions"
	}
	if c.Categories == "" {
		c.Categories = "categories"
	}
	return c
}

// Ping verifies the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping mongo: %w: %v", common.ErrStorage, err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from mongo: %w", err)
	}
	slog.Debug("disconnected from mongo")
	return nil
}

// EnsureIndexes creates the indexes the stores rely on. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []struct {
		collection *mongo.Collection
		models     []mongo.IndexModel
	}{
		{
			collection: s.transactions,
			models: []mongo.IndexModel{{
				Keys:    bson.D{{Key: "user_id", Value: -1}, {Key: "date", Value: -1}},
				Options: options.Index().SetName("user_id_-1_date_-1"),
			}},
		},
		{
			collection: s.categories,
			models: []mongo.IndexModel{{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "type", Value: 1}, {Key: "name", Value: 1}},
				Options: options.Index().SetName("user_id_1_type_1_name_1").SetUnique(true),
			}},
		},
		{
			collection: s.users,
			models: []mongo.IndexModel{
				{
					Keys:    bson.D{{Key: "email", Value: 1}},
					Options: options.Index().SetName("email_1").SetUnique(true),
				},
				{
					Keys:    bson.D{{Key: "deletion_started_at", Value: 1}},
					Options: options.Index().SetName("deletion_started_at_1").SetSparse(true),
				},
			},
		},
	}

	for _, idx := range indexes {
		names, err := idx.collection.Indexes().CreateMany(ctx, idx.models)
		if err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w: %v", idx.collection.Name(), common.ErrStorage, err)
		}
		slog.Debug("ensured indexes", "collection", idx.collection.Name(), "indexes", names)
	}
	return nil
}

// wrapErr classifies a driver error into the application taxonomy.
func wrapErr(action string, err error) error {
	switch {
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("failed to %s: %w", action, common.ErrConflict)
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("failed to %s: %w", action, common.ErrNotFound)
	default:
		return fmt.Errorf("failed to %s: %w: %v", action, common.ErrStorage, err)
	}
}

// parseID converts a hex identity; malformed identities are reported as not found.
func parseID(id, kind string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.NilObjectID, fmt.Errorf("%s %q: %w", kind, id, common.ErrNotFound)
	}
	return oid, nil
}
