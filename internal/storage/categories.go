package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

const categoryColumns = `id, user_id, type, name, created_at, last_modified`

// UpsertCategory ensures a category exists. created reports whether this call inserted it.
func (s *SQLiteStorage) UpsertCategory(ctx context.Context, userID string, categoryType model.TransactionType, name string, at time.Time) (string, bool, error) {
	if err := validateContext(ctx); err != nil {
		return "", false, err
	}
	owner, err := parseID(userID, "user")
	if err != nil {
		return "", false, err
	}
	if err := validateString(name, "name"); err != nil {
		return "", false, err
	}

	candidate := newID()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, type, name, created_at, last_modified)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, type, name) DO UPDATE SET last_modified = excluded.last_modified`,
		candidate, owner, string(categoryType), name, dbTime(at), dbTime(at),
	)
	if err != nil {
		return "", false, wrapErr("upsert category", err)
	}

	var id string
	err = s.db.QueryRowContext(ctx, `
		SELECT id FROM categories WHERE user_id = ? AND type = ? AND name = ?`,
		owner, string(categoryType), name,
	).Scan(&id)
	if err != nil {
		return "", false, wrapErr("read upserted category", err)
	}

	created := id == candidate
	if created {
		slog.Debug("created category", "user_id", owner, "type", categoryType, "name", name)
	}
	return id, created, nil
}

// GetCategory returns the category with the given key.
func (s *SQLiteStorage) GetCategory(ctx context.Context, userID string, categoryType model.TransactionType, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	owner, err := parseID(userID, "user")
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE user_id = ? AND type = ? AND name = ?`,
		owner, string(categoryType), name,
	)
	cat, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s category %q: %w", categoryType, name, common.ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("get category", err)
	}
	return cat, nil
}

// RenameCategory changes a category's name in place. It reports false when
// no category has the old name; renaming onto a taken name is common.ErrConflict.
func (s *SQLiteStorage) RenameCategory(ctx context.Context, userID string, categoryType model.TransactionType, oldName, newName string, at time.Time) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	owner, err := parseID(userID, "user")
	if err != nil {
		return false, err
	}
	if err := validateString(newName, "newName"); err != nil {
		return false, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, last_modified = ?
		WHERE user_id = ? AND type = ? AND name = ?`,
		newName, dbTime(at), owner, string(categoryType), oldName,
	)
	if err != nil {
		return false, wrapErr("rename category", err)
	}
	n, err := rowsAffected(result, "rename category")
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetCategories lists a user's categories ordered by type and name.
func (s *SQLiteStorage) GetCategories(ctx context.Context, userID string, filter service.CategoryFilter) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	where, args, err := categoryWhere(userID, filter)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE `+where+` ORDER BY type, name`, args...)
	if err != nil {
		return nil, wrapErr("query categories", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		cat, scanErr := scanCategory(rows)
		if scanErr != nil {
			return nil, wrapErr("scan category", scanErr)
		}
		categories = append(categories, *cat)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate categories", err)
	}

	slog.Debug("retrieved categories", "user_id", userID, "count", len(categories))
	return categories, nil
}

// CountCategories counts the categories GetCategories would return.
func (s *SQLiteStorage) CountCategories(ctx context.Context, userID string, filter service.CategoryFilter) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	where, args, err := categoryWhere(userID, filter)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE `+where, args...).Scan(&count); err != nil {
		return 0, wrapErr("count categories", err)
	}
	return count, nil
}

// DeleteCategory removes a single category and reports whether it existed.
func (s *SQLiteStorage) DeleteCategory(ctx context.Context, userID string, categoryType model.TransactionType, name string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	owner, err := parseID(userID, "user")
	if err != nil {
		return false, err
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM categories WHERE user_id = ? AND type = ? AND name = ?`,
		owner, string(categoryType), name,
	)
	if err != nil {
		return false, wrapErr("delete category", err)
	}
	n, err := rowsAffected(result, "delete category")
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteCategories removes every category matching the filter.
func (s *SQLiteStorage) DeleteCategories(ctx context.Context, userID string, filter service.CategoryFilter) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	where, args, err := categoryWhere(userID, filter)
	if err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE `+where, args...)
	if err != nil {
		return 0, wrapErr("delete categories", err)
	}
	return rowsAffected(result, "delete categories")
}

func categoryWhere(userID string, filter service.CategoryFilter) (string, []any, error) {
	owner, err := parseID(userID, "user")
	if err != nil {
		return "", nil, err
	}

	clauses := []string{"user_id = ?"}
	args := []any{owner}
	if filter.Type != "" {
		clauses = append(clauses, "type = ?")
		args = append(args, string(filter.Type))
	}
	if len(filter.ExcludeNames) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(filter.ExcludeNames)), ", ")
		clauses = append(clauses, "name NOT IN ("+placeholders+")")
		for _, name := range filter.ExcludeNames {
			args = append(args, name)
		}
	}
	return strings.Join(clauses, " AND "), args, nil
}

func scanCategory(row scanner) (*model.Category, error) {
	var cat model.Category
	var categoryType string
	if err := row.Scan(&cat.ID, &cat.UserID, &categoryType, &cat.Name, &cat.CreatedAt, &cat.LastModified); err != nil {
		return nil, err
	}
	cat.Type = model.TransactionType(categoryType)
	return &cat, nil
}
