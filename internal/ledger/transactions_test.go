package ledger

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/testutil"
)

func newTestLedger(t *testing.T) (*Ledger, *testutil.TestDB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	return New(db.Storage, testutil.DefaultCategories()), db
}

func TestTransactionStore_AddAndGet(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()
	userID := db.MustCreateUser("a@example.com")
	txns := l.Transactions.WithUser(userID)

	fixed := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	txns.now = func() time.Time { return fixed }

	date := time.Date(2024, 5, 31, 18, 0, 0, 0, time.UTC)
	id, err := txns.Add(ctx, model.Transaction{
		Type:        model.TransactionTypeExpense,
		Category:    " Shopping ",
		Amount:      25.5,
		Date:        date,
		Description: "socks",
	})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := txns.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, userID, got.UserID)
	assert.Equal(t, "Shopping", got.Category)
	assert.True(t, got.Date.Equal(date))
	assert.True(t, got.CreatedAt.Equal(fixed))
	assert.True(t, got.LastModified.Equal(fixed))

	// Another user cannot read it.
	otherID := db.MustCreateUser("b@example.com")
	_, err = l.Transactions.WithUser(otherID).Get(ctx, id)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = txns.Get(ctx, "not-an-id")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestTransactionStore_AddValidation(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()
	txns := l.Transactions.WithUser(db.MustCreateUser("a@example.com"))
	date := time.Now()

	tests := []struct {
		txn  model.Transaction
		name string
	}{
		{name: "unknown type", txn: model.Transaction{Type: "Transfer", Category: "X", Amount: 1, Date: date}},
		{name: "zero amount", txn: model.Transaction{Type: model.TransactionTypeIncome, Category: "Salary", Amount: 0, Date: date}},
		{name: "negative amount", txn: model.Transaction{Type: model.TransactionTypeIncome, Category: "Salary", Amount: -3, Date: date}},
		{name: "infinite amount", txn: model.Transaction{Type: model.TransactionTypeIncome, Category: "Salary", Amount: math.Inf(1), Date: date}},
		{name: "not a number", txn: model.Transaction{Type: model.TransactionTypeIncome, Category: "Salary", Amount: math.NaN(), Date: date}},
		{name: "blank category", txn: model.Transaction{Type: model.TransactionTypeIncome, Category: "  ", Amount: 3, Date: date}},
		{name: "missing date", txn: model.Transaction{Type: model.TransactionTypeIncome, Category: "Salary", Amount: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := txns.Add(ctx, tt.txn)
			assert.ErrorIs(t, err, common.ErrInvalidArgument)
		})
	}

	_, err := l.Transactions.Add(ctx, model.Transaction{Type: model.TransactionTypeIncome, Category: "Salary", Amount: 3, Date: date})
	assert.ErrorIs(t, err, common.ErrInvalidArgument, "unbound store cannot write")
}

func TestTransactionStore_UpdateAndDelete(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()
	userID := db.MustCreateUser("a@example.com")
	txns := l.Transactions.WithUser(userID)
	ids := db.MustAddTransactions(userID, testutil.TxnFixture{Type: model.TransactionTypeExpense, Category: "Shopping", Amount: 10})

	later := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	txns.now = func() time.Time { return later }

	category := "Entertainment"
	changed, err := txns.Update(ctx, ids[0], model.TransactionUpdate{Category: &category})
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := txns.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Entertainment", got.Category)
	assert.InDelta(t, 10, got.Amount, 0.001)
	assert.True(t, got.LastModified.Equal(later))

	negative := -1.0
	_, err = txns.Update(ctx, ids[0], model.TransactionUpdate{Amount: &negative})
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	infinite := math.Inf(1)
	_, err = txns.Update(ctx, ids[0], model.TransactionUpdate{Amount: &infinite})
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	missing := "3f2504e0-4f89-11d3-9a0c-0305e82c3301"
	changed, err = txns.Update(ctx, missing, model.TransactionUpdate{Category: &category})
	require.NoError(t, err)
	assert.False(t, changed)

	_, err = txns.Update(ctx, "garbage", model.TransactionUpdate{})
	assert.ErrorIs(t, err, common.ErrNotFound)

	removed, err := txns.Delete(ctx, missing)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = txns.Delete(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = txns.Delete(ctx, "garbage")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestTransactionStore_Query(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()
	userID := db.MustCreateUser("a@example.com")
	otherID := db.MustCreateUser("b@example.com")
	txns := l.Transactions.WithUser(userID)

	march3 := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	db.MustAddTransactions(userID,
		testutil.TxnFixture{Type: model.TransactionTypeExpense, Category: "Shopping", Amount: 5, Date: march3.Add(-time.Second), Description: "Mar 2 late"},
		testutil.TxnFixture{Type: model.TransactionTypeExpense, Category: "Shopping", Amount: 15, Date: march3, Description: "Mar 3 midnight"},
		testutil.TxnFixture{Type: model.TransactionTypeExpense, Category: "Others", Amount: 25, Date: march3.Add(23*time.Hour + 59*time.Minute + 59*time.Second), Description: "Mar 3 23:59:59"},
		testutil.TxnFixture{Type: model.TransactionTypeIncome, Category: "Salary", Amount: 3000, Date: march3.Add(24*time.Hour + time.Second), Description: "Mar 4 00:00:01"},
	)
	db.MustAddTransactions(otherID, testutil.TxnFixture{Type: model.TransactionTypeExpense, Category: "Shopping", Amount: 15, Date: march3})

	descriptions := func(found []model.Transaction) []string {
		var out []string
		for _, txn := range found {
			out = append(out, txn.Description)
		}
		return out
	}

	t.Run("no filters returns everything newest first", func(t *testing.T) {
		found, err := txns.Query(ctx, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"Mar 4 00:00:01", "Mar 3 23:59:59", "Mar 3 midnight", "Mar 2 late"}, descriptions(found))
	})

	t.Run("zero amount bounds equal no amount filter", func(t *testing.T) {
		unfiltered, err := txns.Query(ctx, &model.TransactionFilter{})
		require.NoError(t, err)
		zeroed, err := txns.Query(ctx, &model.TransactionFilter{MinAmount: 0, MaxAmount: 0})
		require.NoError(t, err)
		assert.Equal(t, unfiltered, zeroed)
		assert.Len(t, zeroed, 4)
	})

	t.Run("a calendar day covers the whole day", func(t *testing.T) {
		day := model.Day(march3)
		found, err := txns.Query(ctx, &model.TransactionFilter{StartDate: &day, EndDate: &day})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Mar 3 midnight", "Mar 3 23:59:59"}, descriptions(found))
	})

	t.Run("ByDateRange uses the same bounds", func(t *testing.T) {
		day := model.Day(march3)
		found, err := txns.ByDateRange(ctx, &day, &day)
		require.NoError(t, err)
		assert.Len(t, found, 2)
	})

	t.Run("exact instants are not widened", func(t *testing.T) {
		end := model.At(march3.Add(12 * time.Hour))
		found, err := txns.Query(ctx, &model.TransactionFilter{EndDate: &end})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"Mar 2 late", "Mar 3 midnight"}, descriptions(found))
	})

	t.Run("combined filters", func(t *testing.T) {
		found, err := txns.Query(ctx, &model.TransactionFilter{
			Type:       model.TransactionTypeExpense,
			MinAmount:  10,
			MaxAmount:  20,
			SearchText: "MIDNIGHT",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"Mar 3 midnight"}, descriptions(found))

		count, err := txns.Count(ctx, &model.TransactionFilter{Category: "Shopping"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("unbound store reads nothing", func(t *testing.T) {
		found, err := l.Transactions.Query(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, found)

		count, err := l.Transactions.Count(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestTransactionStore_Summarize(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()
	userID := db.MustCreateUser("a@example.com")

	db.MustAddTransactions(userID,
		testutil.TxnFixture{Type: model.TransactionTypeExpense, Category: "Shopping", Amount: 20},
		testutil.TxnFixture{Type: model.TransactionTypeExpense, Category: "Shopping", Amount: 30},
		testutil.TxnFixture{Type: model.TransactionTypeExpense, Category: "Transportation", Amount: 5},
		testutil.TxnFixture{Type: model.TransactionTypeIncome, Category: "Salary", Amount: 1000},
	)

	summary, err := l.Transactions.WithUser(userID).Summarize(ctx, nil)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Count)
	assert.InDelta(t, 1000, summary.TotalIncome, 0.001)
	assert.InDelta(t, 55, summary.TotalExpenses, 0.001)
	assert.InDelta(t, 945, summary.Net, 0.001)
	assert.Equal(t, model.CategoryTotal{Count: 2, Amount: 50}, summary.ByCategory[model.TransactionTypeExpense]["Shopping"])
	assert.Equal(t, 1, summary.ByCategory[model.TransactionTypeIncome]["Salary"].Count)

	income, err := l.Transactions.WithUser(userID).Summarize(ctx, &model.TransactionFilter{Type: model.TransactionTypeIncome})
	require.NoError(t, err)
	assert.Equal(t, 1, income.Count)
	assert.Zero(t, income.TotalExpenses)
}

func TestTransactionStore_SearchIgnoresCase(t *testing.T) {
	l, db := newTestLedger(t)
	ctx := context.Background()
	userID := db.MustCreateUser("a@example.com")
	txns := l.Transactions.WithUser(userID)

	db.MustAddTransactions(userID,
		testutil.TxnFixture{Type: model.TransactionTypeExpense, Category: "Others", Description: "Café 100%"},
		testutil.TxnFixture{Type: model.TransactionTypeExpense, Category: "Others", Description: "CAFÉ"},
		testutil.TxnFixture{Type: model.TransactionTypeExpense, Category: "Others", Description: "Ölwechsel Garage"},
		testutil.TxnFixture{Type: model.TransactionTypeExpense, Category: "Others", Description: "cafe without accent"},
	)

	tests := []struct {
		search string
		want   int64
	}{
		{search: "café", want: 2},
		{search: "CAFÉ", want: 2},
		{search: "Café", want: 2},
		{search: "öLWECHSEL", want: 1},
		{search: "cafe", want: 1},
		{search: "100%", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			found, err := txns.Query(ctx, &model.TransactionFilter{SearchText: tt.search})
			require.NoError(t, err)
			assert.Len(t, found, int(tt.want))

			count, err := txns.Count(ctx, &model.TransactionFilter{SearchText: tt.search})
			require.NoError(t, err)
			assert.Equal(t, tt.want, count)
		})
	}
}
