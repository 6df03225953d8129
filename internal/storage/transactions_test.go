package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

func insertTestTransaction(t *testing.T, s *SQLiteStorage, userID string, txnType model.TransactionType, category string, amount float64, date time.Time, description string) string {
	t.Helper()
	id, err := s.InsertTransaction(context.Background(), &model.Transaction{
		UserID:      userID,
		Type:        txnType,
		Category:    category,
		Amount:      amount,
		Date:        date,
		Description: description,
	})
	require.NoError(t, err)
	return id
}

func userQuery(userID string, conds ...service.Condition) service.Query {
	conds = append(conds, service.Condition{Field: service.FieldUserID, Op: service.OpEqual, Value: userID})
	return service.Query{Conditions: conds}
}

func TestSQLiteStorage_TransactionCRUD(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	userID := createTestUser(t, store, "u@example.com")
	otherUser := createTestUser(t, store, "v@example.com")

	date := time.Date(2024, 3, 3, 12, 30, 0, 0, time.UTC)
	id := insertTestTransaction(t, store, userID, model.TransactionTypeExpense, "Shopping", 42.5, date, "shoes")

	txn, err := store.GetTransaction(ctx, userID, id)
	require.NoError(t, err)
	assert.Equal(t, model.TransactionTypeExpense, txn.Type)
	assert.Equal(t, "Shopping", txn.Category)
	assert.InDelta(t, 42.5, txn.Amount, 0.001)
	assert.True(t, txn.Date.Equal(date))
	assert.Equal(t, "shoes", txn.Description)

	// Other users cannot see it.
	_, err = store.GetTransaction(ctx, otherUser, id)
	assert.ErrorIs(t, err, common.ErrNotFound)

	amount := 50.0
	description := "boots"
	at := time.Now().Add(time.Hour)
	changed, err := store.UpdateTransaction(ctx, userID, id, model.TransactionUpdate{Amount: &amount, Description: &description}, at)
	require.NoError(t, err)
	assert.True(t, changed)

	txn, err = store.GetTransaction(ctx, userID, id)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, txn.Amount, 0.001)
	assert.Equal(t, "boots", txn.Description)
	assert.Equal(t, "Shopping", txn.Category, "unset fields are untouched")
	assert.WithinDuration(t, at, txn.LastModified, time.Millisecond)

	// An empty update still stamps last_modified.
	changed, err = store.UpdateTransaction(ctx, userID, id, model.TransactionUpdate{}, at.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, changed)

	missing := "3f2504e0-4f89-11d3-9a0c-0305e82c3301"
	changed, err = store.UpdateTransaction(ctx, userID, missing, model.TransactionUpdate{}, at)
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = store.UpdateTransaction(ctx, userID, "bogus", model.TransactionUpdate{}, at)
	assert.ErrorIs(t, err, common.ErrNotFound)

	removed, err := store.DeleteTransaction(ctx, otherUser, id)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = store.DeleteTransaction(ctx, userID, id)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = store.GetTransaction(ctx, userID, id)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStorage_InsertTransactionValidation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	userID := createTestUser(t, store, "u@example.com")

	tests := []struct {
		txn  *model.Transaction
		name string
	}{
		{name: "nil", txn: nil},
		{name: "missing user", txn: &model.Transaction{Type: model.TransactionTypeIncome, Date: time.Now()}},
		{name: "bad type", txn: &model.Transaction{UserID: userID, Type: "Refund", Date: time.Now()}},
		{name: "missing date", txn: &model.Transaction{UserID: userID, Type: model.TransactionTypeIncome}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.InsertTransaction(ctx, tt.txn)
			assert.ErrorIs(t, err, common.ErrInvalidArgument)
		})
	}
}

func TestSQLiteStorage_FindTransactions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	userID := createTestUser(t, store, "u@example.com")
	otherUser := createTestUser(t, store, "v@example.com")

	day := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	insertTestTransaction(t, store, userID, model.TransactionTypeExpense, "Shopping", 10, day.Add(-time.Minute), "late night snack")
	insertTestTransaction(t, store, userID, model.TransactionTypeExpense, "Shopping", 20, day, "100% cotton")
	insertTestTransaction(t, store, userID, model.TransactionTypeExpense, "Transportation", 30, day.Add(23*time.Hour+59*time.Minute), "Taxi_ride")
	insertTestTransaction(t, store, userID, model.TransactionTypeIncome, "Salary", 1000, day.Add(24*time.Hour), "payroll")
	insertTestTransaction(t, store, otherUser, model.TransactionTypeExpense, "Shopping", 99, day, "not mine")
	insertTestTransaction(t, store, userID, model.TransactionTypeExpense, "Entertainment", 4, day.Add(2*time.Hour), "Café 100%")
	insertTestTransaction(t, store, userID, model.TransactionTypeExpense, "Entertainment", 5, day.Add(3*time.Hour), "CAFÉ")
	insertTestTransaction(t, store, userID, model.TransactionTypeExpense, "Entertainment", 6, day.Add(4*time.Hour), "Straße")

	tests := []struct {
		name  string
		conds []service.Condition
		want  int
	}{
		{name: "all for user", want: 7},
		{name: "by type", conds: []service.Condition{{Field: service.FieldType, Op: service.OpEqual, Value: model.TransactionTypeExpense}}, want: 6},
		{name: "by category", conds: []service.Condition{{Field: service.FieldCategory, Op: service.OpEqual, Value: "Shopping"}}, want: 2},
		{name: "amount range", conds: []service.Condition{{Field: service.FieldAmount, Op: service.OpRange, Lower: 15.0, Upper: 30.0}}, want: 2},
		{name: "amount lower only", conds: []service.Condition{{Field: service.FieldAmount, Op: service.OpRange, Lower: 25.0}}, want: 2},
		{name: "whole day", conds: []service.Condition{{Field: service.FieldDate, Op: service.OpRange, Lower: day, Upper: day.Add(24*time.Hour - time.Nanosecond)}}, want: 5},
		{name: "contains ignores case", conds: []service.Condition{{Field: service.FieldDescription, Op: service.OpContains, Value: "PAYROLL"}}, want: 1},
		{name: "contains percent literally", conds: []service.Condition{{Field: service.FieldDescription, Op: service.OpContains, Value: "100%"}}, want: 2},
		{name: "contains folds accented capitals", conds: []service.Condition{{Field: service.FieldDescription, Op: service.OpContains, Value: "café"}}, want: 2},
		{name: "contains folds accented query", conds: []service.Condition{{Field: service.FieldDescription, Op: service.OpContains, Value: "CAFÉ"}}, want: 2},
		{name: "contains folds sharp s", conds: []service.Condition{{Field: service.FieldDescription, Op: service.OpContains, Value: "STRASSE"}}, want: 1},
		{name: "contains underscore literally", conds: []service.Condition{{Field: service.FieldDescription, Op: service.OpContains, Value: "i_r"}}, want: 1},
		{name: "underscore is not a wildcard", conds: []service.Condition{{Field: service.FieldDescription, Op: service.OpContains, Value: "e_n"}}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := userQuery(userID, tt.conds...)
			found, err := store.FindTransactions(ctx, query)
			require.NoError(t, err)
			assert.Len(t, found, tt.want)
			for _, txn := range found {
				assert.Equal(t, userID, txn.UserID)
			}

			count, err := store.CountTransactions(ctx, query)
			require.NoError(t, err)
			assert.Equal(t, int64(tt.want), count)
		})
	}

	t.Run("newest first", func(t *testing.T) {
		found, err := store.FindTransactions(ctx, userQuery(userID))
		require.NoError(t, err)
		require.Len(t, found, 7)
		assert.Equal(t, "Straße", found[0].Description)
		assert.Equal(t, "late night snack", found[6].Description)
	})

	t.Run("malformed user", func(t *testing.T) {
		_, err := store.FindTransactions(ctx, userQuery("nope"))
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestSQLiteStorage_BulkTransactionWrites(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()
	userID := createTestUser(t, store, "u@example.com")
	otherUser := createTestUser(t, store, "v@example.com")

	now := time.Now()
	for i := 0; i < 3; i++ {
		insertTestTransaction(t, store, userID, model.TransactionTypeExpense, "Food", float64(i+1), now, "")
	}
	insertTestTransaction(t, store, userID, model.TransactionTypeIncome, "Food", 5, now, "")
	insertTestTransaction(t, store, otherUser, model.TransactionTypeExpense, "Food", 5, now, "")

	foodExpenses := userQuery(userID,
		service.Condition{Field: service.FieldType, Op: service.OpEqual, Value: model.TransactionTypeExpense},
		service.Condition{Field: service.FieldCategory, Op: service.OpEqual, Value: "Food"},
	)

	relinked, err := store.SetTransactionCategory(ctx, foodExpenses, "Dining", now)
	require.NoError(t, err)
	assert.Equal(t, int64(3), relinked)

	dining := userQuery(userID, service.Condition{Field: service.FieldCategory, Op: service.OpEqual, Value: "Dining"})
	count, err := store.CountTransactions(ctx, dining)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	deleted, err := store.DeleteTransactions(ctx, dining)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	deleted, err = store.DeleteTransactions(ctx, userQuery(userID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := store.CountTransactions(ctx, userQuery(otherUser))
	require.NoError(t, err)
	assert.Equal(t, int64(1), remaining)
}

func TestBuildWhere(t *testing.T) {
	userID := "3f2504e0-4f89-11d3-9a0c-0305e82c3301"

	where, args, err := buildWhere(service.Query{})
	require.NoError(t, err)
	assert.Equal(t, "1 = 1", where)
	assert.Empty(t, args)

	where, args, err = buildWhere(userQuery(userID,
		service.Condition{Field: service.FieldAmount, Op: service.OpRange, Lower: 1.0, Upper: 2.0},
		service.Condition{Field: service.FieldDescription, Op: service.OpContains, Value: `A%b\C`},
	))
	require.NoError(t, err)
	assert.Equal(t, `(amount >= ? AND amount <= ?) AND casefold(description) LIKE ? ESCAPE '\' AND user_id = ?`, where)
	assert.Equal(t, []any{1.0, 2.0, `%a\%b\\c%`, userID}, args)

	_, _, err = buildWhere(service.Query{Conditions: []service.Condition{{Field: "merchant", Op: service.OpEqual, Value: "x"}}})
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}
