package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

const userColumns = `id, email, is_active, created_at, last_modified, deletion_started_at`

// InsertUser stores a new user and returns its identity.
// A second user with the same email is rejected with common.ErrConflict.
func (s *SQLiteStorage) InsertUser(ctx context.Context, user *model.User) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateUser(user); err != nil {
		return "", err
	}

	id := newID()
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	if user.LastModified.IsZero() {
		user.LastModified = user.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, is_active, created_at, last_modified)
		VALUES (?, ?, ?, ?, ?)`,
		id, user.Email, user.IsActive, dbTime(user.CreatedAt), dbTime(user.LastModified),
	)
	if err != nil {
		return "", wrapErr("insert user", err)
	}

	user.ID = id
	slog.Debug("inserted user", "user_id", id)
	return id, nil
}

// GetUserByID retrieves a user by identity.
func (s *SQLiteStorage) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	userID, err := parseID(id, "user")
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, userID)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("get user", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by exact, case-sensitive email.
func (s *SQLiteStorage) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(email, "email"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user with email %q: %w", email, common.ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("get user by email", err)
	}
	return user, nil
}

// DeactivateUser flips an active user to inactive. It reports false when no
// active user with that identity exists.
func (s *SQLiteStorage) DeactivateUser(ctx context.Context, id string, at time.Time) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	userID, err := parseID(id, "user")
	if err != nil {
		return false, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE users SET is_active = 0, last_modified = ?
		WHERE id = ? AND is_active = 1`,
		dbTime(at), userID,
	)
	if err != nil {
		return false, wrapErr("deactivate user", err)
	}
	n, err := rowsAffected(result, "deactivate user")
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// MarkUserDeleting records that an account deletion has started. The user is
// deactivated at the same time so that logins fail until the deletion completes.
func (s *SQLiteStorage) MarkUserDeleting(ctx context.Context, id string, at time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	userID, err := parseID(id, "user")
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET deletion_started_at = COALESCE(deletion_started_at, ?), is_active = 0, last_modified = ?
		WHERE id = ?`,
		dbTime(at), dbTime(at), userID,
	)
	if err != nil {
		return wrapErr("mark user deleting", err)
	}
	n, err := rowsAffected(result, "mark user deleting")
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("user %q: %w", id, common.ErrNotFound)
	}
	return nil
}

// GetUsersPendingDeletion lists users whose deletion started but never finished.
func (s *SQLiteStorage) GetUsersPendingDeletion(ctx context.Context) ([]model.User, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE deletion_started_at IS NOT NULL
		ORDER BY deletion_started_at`)
	if err != nil {
		return nil, wrapErr("query pending deletions", err)
	}
	defer func() { _ = rows.Close() }()

	var users []model.User
	for rows.Next() {
		user, scanErr := scanUser(rows)
		if scanErr != nil {
			return nil, wrapErr("scan user", scanErr)
		}
		users = append(users, *user)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate users", err)
	}
	return users, nil
}

// DeleteUser removes the user document and returns how many were removed.
func (s *SQLiteStorage) DeleteUser(ctx context.Context, id string) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	userID, err := parseID(id, "user")
	if err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return 0, wrapErr("delete user", err)
	}
	return rowsAffected(result, "delete user")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*model.User, error) {
	var user model.User
	var deletionStarted sql.NullTime
	if err := row.Scan(
		&user.ID, &user.Email, &user.IsActive, &user.CreatedAt, &user.LastModified, &deletionStarted,
	); err != nil {
		return nil, err
	}
	if deletionStarted.Valid {
		started := deletionStarted.Time
		user.DeletionStartedAt = &started
	}
	return &user, nil
}
