// Package testutil provides in-memory storage and fixtures for package tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/Veraticus/spice-ledger/internal/storage"
)

// DefaultCategories mirrors the shipped default configuration.
func DefaultCategories() model.DefaultCategories {
	return model.DefaultCategories{
		model.TransactionTypeExpense: {"Shopping", "Transportation", "Entertainment", "Others"},
		model.TransactionTypeIncome:  {"Salary", "Freelance", "Gift/Voucher"},
	}
}

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database.
// It automatically handles migrations and cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// MustCreateUser inserts an active user and returns its identity.
func (db *TestDB) MustCreateUser(email string) string {
	db.t.Helper()
	id, err := db.Storage.InsertUser(context.Background(), &model.User{Email: email, IsActive: true})
	if err != nil {
		db.t.Fatalf("failed to create user %q: %v", email, err)
	}
	return id
}

// MustCreateCategory upserts a category for the user.
func (db *TestDB) MustCreateCategory(userID string, txnType model.TransactionType, name string) string {
	db.t.Helper()
	id, _, err := db.Storage.UpsertCategory(context.Background(), userID, txnType, name, time.Now())
	if err != nil {
		db.t.Fatalf("failed to create category %q: %v", name, err)
	}
	return id
}

// TxnFixture describes a transaction to insert directly into storage.
type TxnFixture struct {
	Date        time.Time
	Type        model.TransactionType
	Category    string
	Description string
	Amount      float64
}

// MustAddTransactions inserts the fixtures for the user and returns their identities.
func (db *TestDB) MustAddTransactions(userID string, fixtures ...TxnFixture) []string {
	db.t.Helper()
	ids := make([]string, 0, len(fixtures))
	for _, f := range fixtures {
		date := f.Date
		if date.IsZero() {
			date = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
		}
		amount := f.Amount
		if amount == 0 {
			amount = 10
		}
		id, err := db.Storage.InsertTransaction(context.Background(), &model.Transaction{
			UserID:      userID,
			Type:        f.Type,
			Category:    f.Category,
			Amount:      amount,
			Date:        date,
			Description: f.Description,
		})
		if err != nil {
			db.t.Fatalf("failed to add transaction: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

// CountCategory counts the user's transactions linked to a category.
func (db *TestDB) CountCategory(userID string, txnType model.TransactionType, name string) int64 {
	db.t.Helper()
	n, err := db.Storage.CountTransactions(context.Background(), service.Query{Conditions: []service.Condition{
		{Field: service.FieldType, Op: service.OpEqual, Value: txnType},
		{Field: service.FieldCategory, Op: service.OpEqual, Value: name},
		{Field: service.FieldUserID, Op: service.OpEqual, Value: userID},
	}})
	if err != nil {
		db.t.Fatalf("failed to count transactions: %v", err)
	}
	return n
}
