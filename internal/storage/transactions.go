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

const transactionColumns = `id, user_id, type, category, amount, date, description, created_at, last_modified`

// InsertTransaction stores a new transaction and returns its identity.
func (s *SQLiteStorage) InsertTransaction(ctx context.Context, txn *model.Transaction) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateTransaction(txn); err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrInvalidArgument, err)
	}
	owner, err := parseID(txn.UserID, "user")
	if err != nil {
		return "", err
	}

	now := time.Now()
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = now
	}
	if txn.LastModified.IsZero() {
		txn.LastModified = txn.CreatedAt
	}

	id := newID()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, owner, string(txn.Type), txn.Category, txn.Amount, dbTime(txn.Date),
		txn.Description, dbTime(txn.CreatedAt), dbTime(txn.LastModified),
	)
	if err != nil {
		return "", wrapErr("insert transaction", err)
	}

	txn.ID = id
	txn.UserID = owner
	return id, nil
}

// GetTransaction returns one of the user's transactions.
func (s *SQLiteStorage) GetTransaction(ctx context.Context, userID, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	owner, txnID, err := parseOwnedID(userID, id)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE id = ? AND user_id = ?`,
		txnID, owner,
	)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %q: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, wrapErr("get transaction", err)
	}
	return txn, nil
}

// UpdateTransaction applies the non-nil fields of update and stamps last_modified.
// It reports false when the user has no such transaction.
func (s *SQLiteStorage) UpdateTransaction(ctx context.Context, userID, id string, update model.TransactionUpdate, at time.Time) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	owner, txnID, err := parseOwnedID(userID, id)
	if err != nil {
		return false, err
	}

	sets := []string{"last_modified = ?"}
	args := []any{dbTime(at)}
	if update.Type != nil {
		sets = append(sets, "type = ?")
		args = append(args, string(*update.Type))
	}
	if update.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *update.Category)
	}
	if update.Amount != nil {
		sets = append(sets, "amount = ?")
		args = append(args, *update.Amount)
	}
	if update.Date != nil {
		sets = append(sets, "date = ?")
		args = append(args, dbTime(*update.Date))
	}
	if update.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *update.Description)
	}
	args = append(args, txnID, owner)

	result, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET `+strings.Join(sets, ", ")+` WHERE id = ? AND user_id = ?`,
		args...,
	)
	if err != nil {
		return false, wrapErr("update transaction", err)
	}
	n, err := rowsAffected(result, "update transaction")
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteTransaction removes one of the user's transactions and reports whether it existed.
func (s *SQLiteStorage) DeleteTransaction(ctx context.Context, userID, id string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	owner, txnID, err := parseOwnedID(userID, id)
	if err != nil {
		return false, err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, txnID, owner)
	if err != nil {
		return false, wrapErr("delete transaction", err)
	}
	n, err := rowsAffected(result, "delete transaction")
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindTransactions returns every transaction matching the query, newest first by creation time.
func (s *SQLiteStorage) FindTransactions(ctx context.Context, query service.Query) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	where, args, err := buildWhere(query)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE `+where+` ORDER BY created_at DESC, rowid DESC`,
		args...,
	)
	if err != nil {
		return nil, wrapErr("query transactions", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, scanErr := scanTransaction(rows)
		if scanErr != nil {
			return nil, wrapErr("scan transaction", scanErr)
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate transactions", err)
	}

	slog.Debug("retrieved transactions", "count", len(transactions))
	return transactions, nil
}

// CountTransactions counts the transactions matching the query.
func (s *SQLiteStorage) CountTransactions(ctx context.Context, query service.Query) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	where, args, err := buildWhere(query)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE `+where, args...).Scan(&count); err != nil {
		return 0, wrapErr("count transactions", err)
	}
	return count, nil
}

// SetTransactionCategory points every matching transaction at category.
func (s *SQLiteStorage) SetTransactionCategory(ctx context.Context, query service.Query, category string, at time.Time) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(category, "category"); err != nil {
		return 0, err
	}
	where, args, err := buildWhere(query)
	if err != nil {
		return 0, err
	}

	args = append([]any{category, dbTime(at)}, args...)
	result, err := s.db.ExecContext(ctx,
		`UPDATE transactions SET category = ?, last_modified = ? WHERE `+where,
		args...,
	)
	if err != nil {
		return 0, wrapErr("relink transactions", err)
	}
	return rowsAffected(result, "relink transactions")
}

// DeleteTransactions removes every matching transaction.
func (s *SQLiteStorage) DeleteTransactions(ctx context.Context, query service.Query) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	where, args, err := buildWhere(query)
	if err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE `+where, args...)
	if err != nil {
		return 0, wrapErr("delete transactions", err)
	}
	return rowsAffected(result, "delete transactions")
}

func parseOwnedID(userID, id string) (string, string, error) {
	owner, err := parseID(userID, "user")
	if err != nil {
		return "", "", err
	}
	txnID, err := parseID(id, "transaction")
	if err != nil {
		return "", "", err
	}
	return owner, txnID, nil
}

func scanTransaction(row scanner) (*model.Transaction, error) {
	var txn model.Transaction
	var txnType string
	if err := row.Scan(
		&txn.ID, &txn.UserID, &txnType, &txn.Category, &txn.Amount, &txn.Date,
		&txn.Description, &txn.CreatedAt, &txn.LastModified,
	); err != nil {
		return nil, err
	}
	txn.Type = model.TransactionType(txnType)
	return &txn, nil
}
