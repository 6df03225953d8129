package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// InsertTransaction stores a new transaction and returns its identity.
func (s *Store) InsertTransaction(ctx context.Context, txn *model.Transaction) (string, error) {
	if txn == nil {
		return "", fmt.Errorf("%w: transaction is required", common.ErrInvalidArgument)
	}
	if !txn.Type.Valid() || txn.Date.IsZero() {
		return "", fmt.Errorf("%w: transaction needs a valid type and date", common.ErrInvalidArgument)
	}
	owner, err := parseID(txn.UserID, "user")
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = now
	}
	if txn.LastModified.IsZero() {
		txn.LastModified = txn.CreatedAt
	}

	result, err := s.transactions.InsertOne(ctx, newTransactionDoc(owner, txn))
	if err != nil {
		return "", wrapErr("insert transaction", err)
	}
	oid, ok := result.InsertedID.(bson.ObjectID)
	if !ok {
		return "", fmt.Errorf("failed to insert transaction: %w: unexpected id %T", common.ErrStorage, result.InsertedID)
	}

	txn.ID = oid.Hex()
	return txn.ID, nil
}

func ownedKey(userID, id string) (bson.D, error) {
	owner, err := parseID(userID, "user")
	if err != nil {
		return nil, err
	}
	oid, err := parseID(id, "transaction")
	if err != nil {
		return nil, err
	}
	return bson.D{{Key: "_id", Value: oid}, {Key: "user_id", Value: owner}}, nil
}

// GetTransaction returns one of the user's transactions.
func (s *Store) GetTransaction(ctx context.Context, userID, id string) (*model.Transaction, error) {
	key, err := ownedKey(userID, id)
	if err != nil {
		return nil, err
	}

	var doc transactionDoc
	err = s.transactions.FindOne(ctx, key).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("transaction %q: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("get transaction", err)
	}
	txn := doc.toModel()
	return &txn, nil
}

// UpdateTransaction applies the non-nil fields of update and stamps last_modified.
func (s *Store) UpdateTransaction(ctx context.Context, userID, id string, update model.TransactionUpdate, at time.Time) (bool, error) {
	key, err := ownedKey(userID, id)
	if err != nil {
		return false, err
	}

	set := bson.D{{Key: "last_modified", Value: at.UTC()}}
	if update.Type != nil {
		set = append(set, bson.E{Key: "type", Value: string(*update.Type)})
	}
	if update.Category != nil {
		set = append(set, bson.E{Key: "category", Value: *update.Category})
	}
	if update.Amount != nil {
		set = append(set, bson.E{Key: "amount", Value: *update.Amount})
	}
	if update.Date != nil {
		set = append(set, bson.E{Key: "date", Value: update.Date.UTC()})
	}
	if update.Description != nil {
		set = append(set, bson.E{Key: "description", Value: *update.Description})
	}

	result, err := s.transactions.UpdateOne(ctx, key, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return false, wrapErr("update transaction", err)
	}
	return result.MatchedCount > 0, nil
}

// DeleteTransaction removes one of the user's transactions and reports whether it existed.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) (bool, error) {
	key, err := ownedKey(userID, id)
	if err != nil {
		return false, err
	}
	result, err := s.transactions.DeleteOne(ctx, key)
	if err != nil {
		return false, wrapErr("delete transaction", err)
	}
	return result.DeletedCount > 0, nil
}

// FindTransactions returns every transaction matching the query, newest first by creation time.
func (s *Store) FindTransactions(ctx context.Context, query service.Query) ([]model.Transaction, error) {
	filter, err := buildFilter(query)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.transactions.Find(ctx, filter, opts)
	if err != nil {
		return nil, wrapErr("query transactions", err)
	}

	var docs []transactionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, wrapErr("decode transactions", err)
	}

	transactions := make([]model.Transaction, 0, len(docs))
	for _, doc := range docs {
		transactions = append(transactions, doc.toModel())
	}
	return transactions, nil
}

// CountTransactions counts the transactions matching the query.
func (s *Store) CountTransactions(ctx context.Context, query service.Query) (int64, error) {
	filter, err := buildFilter(query)
	if err != nil {
		return 0, err
	}
	count, err := s.transactions.CountDocuments(ctx, filter)
	if err != nil {
		return 0, wrapErr("count transactions", err)
	}
	return count, nil
}

// SetTransactionCategory points every matching transaction at category.
func (s *Store) SetTransactionCategory(ctx context.Context, query service.Query, category string, at time.Time) (int64, error) {
	if category == "" {
		return 0, fmt.Errorf("%w: category is required", common.ErrInvalidArgument)
	}
	filter, err := buildFilter(query)
	if err != nil {
		return 0, err
	}

	result, err := s.transactions.UpdateMany(ctx, filter, bson.D{{Key: "$set", Value: bson.D{
		{Key: "category", Value: category},
		{Key: "last_modified", Value: at.UTC()},
	}}})
	if err != nil {
		return 0, wrapErr("relink transactions", err)
	}
	return result.ModifiedCount, nil
}

// DeleteTransactions removes every matching transaction.
func (s *Store) DeleteTransactions(ctx context.Context, query service.Query) (int64, error) {
	filter, err := buildFilter(query)
	if err != nil {
		return 0, err
	}
	result, err := s.transactions.DeleteMany(ctx, filter)
	if err != nil {
		return 0, wrapErr("delete transactions", err)
	}
	return result.DeletedCount, nil
}
