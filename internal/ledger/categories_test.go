package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/Veraticus/spice-ledger/internal/testutil"
)

func newTestSession(t *testing.T) (*Session, *testutil.TestDB) {
	t.Helper()
	l, db := newTestLedger(t)
	userID := db.MustCreateUser("owner@example.com")
	session, err := l.Session(context.Background(), userID)
	require.NoError(t, err)
	return session, db
}

func categoryNames(cats []model.Category) []string {
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	return names
}

func TestCategoryStore_SeedDefaults(t *testing.T) {
	session, _ := newTestSession(t)
	ctx := context.Background()

	expenses, err := session.Categories.ListByType(ctx, model.TransactionTypeExpense)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Shopping", "Transportation", "Entertainment", "Others"}, categoryNames(expenses))

	income, err := session.Categories.ListByType(ctx, model.TransactionTypeIncome)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Salary", "Freelance", "Gift/Voucher"}, categoryNames(income))

	created, err := session.Categories.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Zero(t, created, "seeding twice creates nothing")

	count, err := session.Categories.CountUserCategories(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
}

func TestCategoryStore_UpsertIsUnique(t *testing.T) {
	session, db := newTestSession(t)
	ctx := context.Background()
	cats := session.Categories

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cats.now = func() time.Time { return first }
	res, err := cats.Upsert(ctx, model.TransactionTypeExpense, "Food", "")
	require.NoError(t, err)
	assert.True(t, res.Created)

	second := first.Add(48 * time.Hour)
	cats.now = func() time.Time { return second }
	again, err := cats.Upsert(ctx, model.TransactionTypeExpense, " Food ", "")
	require.NoError(t, err)
	assert.False(t, again.Created)
	assert.Equal(t, res.ID, again.ID)

	got, err := db.Storage.GetCategory(ctx, session.UserID, model.TransactionTypeExpense, "Food")
	require.NoError(t, err)
	assert.True(t, got.CreatedAt.Equal(first))
	assert.True(t, got.LastModified.Equal(second))

	n, err := db.Storage.CountCategories(ctx, session.UserID, service.CategoryFilter{Type: model.TransactionTypeExpense})
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	// Same name, other type, is a separate category.
	other, err := cats.Upsert(ctx, model.TransactionTypeIncome, "Food", "")
	require.NoError(t, err)
	assert.True(t, other.Created)
	assert.NotEqual(t, res.ID, other.ID)

	_, err = cats.Upsert(ctx, "Transfer", "Food", "")
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
	_, err = cats.Upsert(ctx, model.TransactionTypeExpense, "   ", "")
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestCategoryStore_Rename(t *testing.T) {
	ctx := context.Background()

	t.Run("relinks every transaction", func(t *testing.T) {
		session, db := newTestSession(t)
		db.MustCreateCategory(session.UserID, model.TransactionTypeExpense, "Food")
		db.MustAddTransactions(session.UserID,
			testutil.TxnFixture{Type: model.TransactionTypeExpense, Category: "Food"},
			testutil.TxnFixture{Type: model.TransactionTypeExpense, Category: "Food"},
			testutil.TxnFixture{Type: model.TransactionTypeExpense, Category: "Food"},
			testutil.TxnFixture{Type: model.TransactionTypeIncome, Category: "Food"},
		)

		res, err := session.Categories.Upsert(ctx, model.TransactionTypeExpense, "Dining", "Food")
		require.NoError(t, err)
		assert.Equal(t, int64(3), res.Relinked)
		assert.False(t, res.Created)
		assert.NotEmpty(t, res.ID)

		assert.Zero(t, db.CountCategory(session.UserID, model.TransactionTypeExpense, "Food"))
		assert.Equal(t, int64(3), db.CountCategory(session.UserID, model.TransactionTypeExpense, "Dining"))
		assert.Equal(t, int64(1), db.CountCategory(session.UserID, model.TransactionTypeIncome, "Food"), "other type untouched")

		_, err = db.Storage.GetCategory(ctx, session.UserID, model.TransactionTypeExpense, "Food")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("onto an existing category conflicts", func(t *testing.T) {
		session, db := newTestSession(t)
		db.MustAddTransactions(session.UserID, testutil.TxnFixture{Type: model.TransactionTypeExpense, Category: "Shopping"})

		_, err := session.Categories.Rename(ctx, model.TransactionTypeExpense, "Shopping", "Others")
		assert.ErrorIs(t, err, common.ErrConflict)
		assert.Equal(t, int64(1), db.CountCategory(session.UserID, model.TransactionTypeExpense, "Shopping"))
	})

	t.Run("missing category", func(t *testing.T) {
		session, _ := newTestSession(t)
		_, err := session.Categories.Rename(ctx, model.TransactionTypeExpense, "Nope", "Still nope")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("same name is a no-op", func(t *testing.T) {
		session, _ := newTestSession(t)
		n, err := session.Categories.Rename(ctx, model.TransactionTypeExpense, "Shopping", " Shopping")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("resumes an interrupted relink", func(t *testing.T) {
		session, db := newTestSession(t)
		db.MustCreateCategory(session.UserID, model.TransactionTypeExpense, "Food")
		db.MustAddTransactions(session.UserID,
			testutil.TxnFixture{Type: model.TransactionTypeExpense, Category: "Food"},
			testutil.TxnFixture{Type: model.TransactionTypeExpense, Category: "Food"},
		)

		// The category was renamed but the transactions were never rewritten.
		renamed, err := db.Storage.RenameCategory(ctx, session.UserID, model.TransactionTypeExpense, "Food", "Dining", time.Now())
		require.NoError(t, err)
		require.True(t, renamed)

		n, err := session.Categories.Rename(ctx, model.TransactionTypeExpense, "Food", "Dining")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
		assert.Zero(t, db.CountCategory(session.UserID, model.TransactionTypeExpense, "Food"))
	})
}

func TestCategoryStore_DeleteSafe(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*Session, *testutil.TestDB) {
		t.Helper()
		session, db := newTestSession(t)
		db.MustCreateCategory(session.UserID, model.TransactionTypeExpense, "A")
		db.MustCreateCategory(session.UserID, model.TransactionTypeExpense, "B")
		db.MustAddTransactions(session.UserID,
			testutil.TxnFixture{Type: model.TransactionTypeExpense, Category: "A"},
			testutil.TxnFixture{Type: model.TransactionTypeExpense, Category: "A"},
			testutil.TxnFixture{Type: model.TransactionTypeExpense, Category: "A"},
			testutil.TxnFixture{Type: model.TransactionTypeExpense, Category: "Shopping"},
		)
		return session, db
	}

	t.Run("block refuses while referenced", func(t *testing.T) {
		session, db := setup(t)
		_, err := session.Categories.DeleteSafe(ctx, model.TransactionTypeExpense, "A", model.StrategyBlock, "")
		assert.ErrorIs(t, err, common.ErrInUse)

		_, err = db.Storage.GetCategory(ctx, session.UserID, model.TransactionTypeExpense, "A")
		assert.NoError(t, err, "category still exists")
		assert.Equal(t, int64(3), db.CountCategory(session.UserID, model.TransactionTypeExpense, "A"))
	})

	t.Run("block deletes an unreferenced category", func(t *testing.T) {
		session, _ := setup(t)
		res, err := session.Categories.DeleteSafe(ctx, model.TransactionTypeExpense, "B", model.StrategyBlock, "")
		require.NoError(t, err)
		assert.Equal(t, DeleteResult{Deleted: true}, res)
	})

	t.Run("reassign moves transactions", func(t *testing.T) {
		session, db := setup(t)
		res, err := session.Categories.DeleteSafe(ctx, model.TransactionTypeExpense, "A", model.StrategyReassign, "B")
		require.NoError(t, err)
		assert.Equal(t, DeleteResult{Reassigned: 3, Deleted: true}, res)

		assert.Zero(t, db.CountCategory(session.UserID, model.TransactionTypeExpense, "A"))
		assert.Equal(t, int64(3), db.CountCategory(session.UserID, model.TransactionTypeExpense, "B"))
		_, err = db.Storage.GetCategory(ctx, session.UserID, model.TransactionTypeExpense, "A")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("reassign needs a target when referenced", func(t *testing.T) {
		session, db := setup(t)
		_, err := session.Categories.DeleteSafe(ctx, model.TransactionTypeExpense, "A", model.StrategyReassign, "")
		assert.ErrorIs(t, err, common.ErrInvalidArgument)
		assert.Equal(t, int64(3), db.CountCategory(session.UserID, model.TransactionTypeExpense, "A"))
	})

	t.Run("reassign target must exist", func(t *testing.T) {
		session, _ := setup(t)
		_, err := session.Categories.DeleteSafe(ctx, model.TransactionTypeExpense, "A", model.StrategyReassign, "Nowhere")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("reassign to itself", func(t *testing.T) {
		session, _ := setup(t)
		_, err := session.Categories.DeleteSafe(ctx, model.TransactionTypeExpense, "A", model.StrategyReassign, "A")
		assert.ErrorIs(t, err, common.ErrInvalidArgument)
	})

	t.Run("reassign without target when unreferenced", func(t *testing.T) {
		session, _ := setup(t)
		res, err := session.Categories.DeleteSafe(ctx, model.TransactionTypeExpense, "B", model.StrategyReassign, "")
		require.NoError(t, err)
		assert.True(t, res.Deleted)
	})

	t.Run("cascade deletes only linked transactions", func(t *testing.T) {
		session, db := setup(t)
		res, err := session.Categories.DeleteSafe(ctx, model.TransactionTypeExpense, "A", model.StrategyCascade, "")
		require.NoError(t, err)
		assert.Equal(t, DeleteResult{Cascaded: 3, Deleted: true}, res)

		remaining, err := session.Transactions.Count(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(1), remaining)
		assert.Equal(t, int64(1), db.CountCategory(session.UserID, model.TransactionTypeExpense, "Shopping"))
		_, err = db.Storage.GetCategory(ctx, session.UserID, model.TransactionTypeExpense, "A")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("unknown strategy", func(t *testing.T) {
		session, _ := setup(t)
		_, err := session.Categories.DeleteSafe(ctx, model.TransactionTypeExpense, "A", "Shred", "")
		assert.ErrorIs(t, err, common.ErrInvalidArgument)
	})

	t.Run("missing category", func(t *testing.T) {
		session, _ := setup(t)
		_, err := session.Categories.DeleteSafe(ctx, model.TransactionTypeExpense, "Z", model.StrategyCascade, "")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestCategoryStore_Listings(t *testing.T) {
	session, db := newTestSession(t)
	ctx := context.Background()
	db.MustCreateCategory(session.UserID, model.TransactionTypeExpense, "Rent")
	db.MustCreateCategory(session.UserID, model.TransactionTypeIncome, "Dividends")
	db.MustAddTransactions(session.UserID,
		testutil.TxnFixture{Type: model.TransactionTypeExpense, Category: "Rent"},
		testutil.TxnFixture{Type: model.TransactionTypeExpense, Category: "Rent"},
	)

	others, err := session.Categories.OtherCategories(ctx, model.TransactionTypeExpense, "Rent")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Shopping", "Transportation", "Entertainment", "Others"}, categoryNames(others))

	refs, err := session.Categories.CountTransactions(ctx, model.TransactionTypeExpense, "Rent")
	require.NoError(t, err)
	assert.Equal(t, int64(2), refs)

	custom, err := session.Categories.CountUserCategories(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), custom)

	assert.True(t, session.Categories.IsDefault("Salary"))
	assert.False(t, session.Categories.IsDefault("Rent"))

	deleted, err := session.Categories.DeleteUserCategories(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	all, err := session.Categories.CountUserCategories(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int64(7), all, "defaults survive")
}

func TestCategoryStore_Unbound(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	cats := l.Categories

	res, err := cats.Upsert(ctx, model.TransactionTypeExpense, "Food", "")
	require.NoError(t, err)
	assert.Equal(t, UpsertResult{}, res)

	n, err := cats.Rename(ctx, model.TransactionTypeExpense, "Food", "Dining")
	require.NoError(t, err)
	assert.Zero(t, n)

	del, err := cats.DeleteSafe(ctx, model.TransactionTypeExpense, "Food", model.StrategyCascade, "")
	require.NoError(t, err)
	assert.Equal(t, DeleteResult{}, del)

	list, err := cats.ListByType(ctx, model.TransactionTypeExpense)
	require.NoError(t, err)
	assert.Empty(t, list)

	seeded, err := cats.SeedDefaults(ctx)
	require.NoError(t, err)
	assert.Zero(t, seeded)
	assert.Empty(t, cats.UserID())
}

func TestLedger_SessionRequiresUser(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Session(ctx, "3f2504e0-4f89-11d3-9a0c-0305e82c3301")
	assert.ErrorIs(t, err, common.ErrNotFound)

	n, err := db.Storage.CountCategories(ctx, "3f2504e0-4f89-11d3-9a0c-0305e82c3301", service.CategoryFilter{})
	require.NoError(t, err)
	assert.Zero(t, n, "no orphan categories seeded")
}
