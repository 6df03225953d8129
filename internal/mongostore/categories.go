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

func categoryKey(owner bson.ObjectID, categoryType model.TransactionType, name string) bson.D {
	return bson.D{
		{Key: "user_id", Value: owner},
		{Key: "type", Value: string(categoryType)},
		{Key: "name", Value: name},
	}
}

// UpsertCategory ensures a category exists. created reports whether this call inserted it.
func (s *Store) UpsertCategory(ctx context.Context, userID string, categoryType model.TransactionType, name string, at time.Time) (string, bool, error) {
	owner, err := parseID(userID, "user")
	if err != nil {
		return "", false, err
	}
	if name == "" {
		return "", false, fmt.Errorf("%w: category name is required", common.ErrInvalidArgument)
	}

	key := categoryKey(owner, categoryType, name)
	update := bson.D{
		{Key: "$set", Value: bson.D{{Key: "last_modified", Value: at.UTC()}}},
		{Key: "$setOnInsert", Value: bson.D{{Key: "created_at", Value: at.UTC()}}},
	}
	result, err := s.categories.UpdateOne(ctx, key, update, options.UpdateOne().SetUpsert(true))
	switch {
	case err == nil && result.UpsertedID != nil:
		if oid, ok := result.UpsertedID.(bson.ObjectID); ok {
			return oid.Hex(), true, nil
		}
	case err != nil && !mongo.IsDuplicateKeyError(err):
		return "", false, wrapErr("upsert category", err)
	}

	// Matched an existing document, or lost an insert race to a concurrent upsert.
	cat, err := s.GetCategory(ctx, userID, categoryType, name)
	if err != nil {
		return "", false, err
	}
	return cat.ID, false, nil
}

// GetCategory returns the category with the given key.
func (s *Store) GetCategory(ctx context.Context, userID string, categoryType model.TransactionType, name string) (*model.Category, error) {
	owner, err := parseID(userID, "user")
	if err != nil {
		return nil, err
	}

	var doc categoryDoc
	err = s.categories.FindOne(ctx, categoryKey(owner, categoryType, name)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s category %q: %w", categoryType, name, common.ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("get category", err)
	}
	cat := doc.toModel()
	return &cat, nil
}

// RenameCategory renames in place; the unique index turns a rename onto a
// taken name into common.ErrConflict.
func (s *Store) RenameCategory(ctx context.Context, userID string, categoryType model.TransactionType, oldName, newName string, at time.Time) (bool, error) {
	owner, err := parseID(userID, "user")
	if err != nil {
		return false, err
	}

	result, err := s.categories.UpdateOne(ctx,
		categoryKey(owner, categoryType, oldName),
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "name", Value: newName},
			{Key: "last_modified", Value: at.UTC()},
		}}},
	)
	if err != nil {
		return false, wrapErr("rename category", err)
	}
	return result.MatchedCount > 0, nil
}

// GetCategories lists a user's categories ordered by type and name.
func (s *Store) GetCategories(ctx context.Context, userID string, filter service.CategoryFilter) ([]model.Category, error) {
	owner, err := parseID(userID, "user")
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "type", Value: 1}, {Key: "name", Value: 1}})
	cursor, err := s.categories.Find(ctx, categoryFilter(owner, filter), opts)
	if err != nil {
		return nil, wrapErr("query categories", err)
	}

	var docs []categoryDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, wrapErr("decode categories", err)
	}

	categories := make([]model.Category, 0, len(docs))
	for _, doc := range docs {
		categories = append(categories, doc.toModel())
	}
	return categories, nil
}

// CountCategories counts the categories GetCategories would return.
func (s *Store) CountCategories(ctx context.Context, userID string, filter service.CategoryFilter) (int64, error) {
	owner, err := parseID(userID, "user")
	if err != nil {
		return 0, err
	}
	count, err := s.categories.CountDocuments(ctx, categoryFilter(owner, filter))
	if err != nil {
		return 0, wrapErr("count categories", err)
	}
	return count, nil
}

// DeleteCategory removes a single category and reports whether it existed.
func (s *Store) DeleteCategory(ctx context.Context, userID string, categoryType model.TransactionType, name string) (bool, error) {
	owner, err := parseID(userID, "user")
	if err != nil {
		return false, err
	}
	result, err := s.categories.DeleteOne(ctx, categoryKey(owner, categoryType, name))
	if err != nil {
		return false, wrapErr("delete category", err)
	}
	return result.DeletedCount > 0, nil
}

// DeleteCategories removes every category matching the filter.
func (s *Store) DeleteCategories(ctx context.Context, userID string, filter service.CategoryFilter) (int64, error) {
	owner, err := parseID(userID, "user")
	if err != nil {
		return 0, err
	}
	result, err := s.categories.DeleteMany(ctx, categoryFilter(owner, filter))
	if err != nil {
		return 0, wrapErr("delete categories", err)
	}
	return result.DeletedCount, nil
}
