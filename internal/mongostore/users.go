package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

// InsertUser stores a new user. A duplicate email is common.ErrConflict.
func (s *Store) InsertUser(ctx context.Context, user *model.User) (string, error) {
	if user == nil || strings.TrimSpace(user.Email) == "" {
		return "", fmt.Errorf("%w: user email is required", common.ErrInvalidArgument)
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.LastModified.IsZero() {
		user.LastModified = user.CreatedAt
	}

	doc := userDoc{
		Email:        user.Email,
		IsActive:     user.IsActive,
		CreatedAt:    user.CreatedAt,
		LastModified: user.LastModified,
	}
	result, err := s.users.InsertOne(ctx, doc)
	if err != nil {
		return "", wrapErr("insert user", err)
	}
	oid, ok := result.InsertedID.(bson.ObjectID)
	if !ok {
		return "", fmt.Errorf("failed to insert user: %w: unexpected id %T", common.ErrStorage, result.InsertedID)
	}

	user.ID = oid.Hex()
	return user.ID, nil
}

// GetUserByID retrieves a user by identity.
func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := parseID(id, "user")
	if err != nil {
		return nil, err
	}
	return s.findUser(ctx, bson.D{{Key: "_id", Value: oid}}, fmt.Sprintf("user %q", id))
}

// GetUserByEmail retrieves a user by exact, case-sensitive email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findUser(ctx, bson.D{{Key: "email", Value: email}}, fmt.Sprintf("user with email %q", email))
}

func (s *Store) findUser(ctx context.Context, filter bson.D, what string) (*model.User, error) {
	var doc userDoc
	err := s.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%s: %w", what, common.ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("get user", err)
	}
	return doc.toModel(), nil
}

// DeactivateUser flips an active user to inactive in one conditional update.
func (s *Store) DeactivateUser(ctx context.Context, id string, at time.Time) (bool, error) {
	oid, err := parseID(id, "user")
	if err != nil {
		return false, err
	}

	result, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}, {Key: "is_active", Value: true}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "is_active", Value: false},
			{Key: "last_modified", Value: at.UTC()},
		}}},
	)
	if err != nil {
		return false, wrapErr("deactivate user", err)
	}
	return result.MatchedCount == 1, nil
}

// MarkUserDeleting stamps the deletion marker, keeping an earlier one if present,
// and deactivates the user.
func (s *Store) MarkUserDeleting(ctx context.Context, id string, at time.Time) error {
	oid, err := parseID(id, "user")
	if err != nil {
		return err
	}

	result, err := s.users.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.A{bson.D{{Key: "$set", Value: bson.D{
			{Key: "deletion_started_at", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$deletion_started_at", at.UTC()}}}},
			{Key: "is_active", Value: false},
			{Key: "last_modified", Value: at.UTC()},
		}}}},
	)
	if err != nil {
		return wrapErr("mark user deleting", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("user %q: %w", id, common.ErrNotFound)
	}
	return nil
}

// GetUsersPendingDeletion lists users whose deletion started but never finished.
func (s *Store) GetUsersPendingDeletion(ctx context.Context) ([]model.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "deletion_started_at", Value: 1}})
	cursor, err := s.users.Find(ctx,
		bson.D{{Key: "deletion_started_at", Value: bson.D{{Key: "$ne", Value: nil}}}},
		opts,
	)
	if err != nil {
		return nil, wrapErr("query pending deletions", err)
	}

	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, wrapErr("decode users", err)
	}

	users := make([]model.User, 0, len(docs))
	for _, doc := range docs {
		users = append(users, *doc.toModel())
	}
	return users, nil
}

// DeleteUser removes the user document.
func (s *Store) DeleteUser(ctx context.Context, id string) (int64, error) {
	oid, err := parseID(id, "user")
	if err != nil {
		return 0, err
	}
	result, err := s.users.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return 0, wrapErr("delete user", err)
	}
	return result.DeletedCount, nil
}
