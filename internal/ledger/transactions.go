package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// TransactionStore owns transaction documents for one user at a time.
// Writes on a store with no user bound fail with common.ErrInvalidArgument;
// reads return nothing.
type TransactionStore struct {
	storage service.TransactionStorage
	now     func() time.Time
	userID  string
}

// NewTransactionStore creates an unbound store.
func NewTransactionStore(storage service.TransactionStorage) *TransactionStore {
	return &TransactionStore{storage: storage, now: time.Now}
}

// WithUser returns a copy of the store scoped to userID.
func (s *TransactionStore) WithUser(userID string) *TransactionStore {
	bound := *s
	bound.userID = userID
	return &bound
}

// UserID returns the bound user, or "" when unbound.
func (s *TransactionStore) UserID() string {
	return s.userID
}

// Add validates and stores a new transaction for the bound user.
// Whether the category exists is left to the caller.
func (s *TransactionStore) Add(ctx context.Context, txn model.Transaction) (string, error) {
	if s.userID == "" {
		return "", fmt.Errorf("%w: no user bound", common.ErrInvalidArgument)
	}
	txn.Category = strings.TrimSpace(txn.Category)
	if err := validateFields(&txn.Type, &txn.Category, &txn.Amount, &txn.Date); err != nil {
		return "", err
	}

	now := s.now()
	txn.ID = ""
	txn.UserID = s.userID
	txn.CreatedAt = now
	txn.LastModified = now

	id, err := s.storage.InsertTransaction(ctx, &txn)
	if err != nil {
		return "", fmt.Errorf("failed to add transaction: %w", err)
	}

	slog.Info("Added transaction",
		"user_id", s.userID,
		"id", id,
		"type", txn.Type,
		"category", txn.Category,
		"amount", txn.Amount)
	return id, nil
}

// Update applies the set fields of update and refreshes last_modified.
// It reports false when the user has no transaction with that identity.
func (s *TransactionStore) Update(ctx context.Context, id string, update model.TransactionUpdate) (bool, error) {
	if s.userID == "" {
		return false, fmt.Errorf("%w: no user bound", common.ErrInvalidArgument)
	}
	if update.Category != nil {
		trimmed := strings.TrimSpace(*update.Category)
		update.Category = &trimmed
	}
	if err := validateFields(update.Type, update.Category, update.Amount, update.Date); err != nil {
		return false, err
	}

	changed, err := s.storage.UpdateTransaction(ctx, s.userID, id, update, s.now())
	if err != nil {
		return false, fmt.Errorf("failed to update transaction: %w", err)
	}
	if changed {
		slog.Debug("Updated transaction", "user_id", s.userID, "id", id)
	}
	return changed, nil
}

// Delete removes one transaction and reports whether it existed.
func (s *TransactionStore) Delete(ctx context.Context, id string) (bool, error) {
	if s.userID == "" {
		return false, fmt.Errorf("%w: no user bound", common.ErrInvalidArgument)
	}
	removed, err := s.storage.DeleteTransaction(ctx, s.userID, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete transaction: %w", err)
	}
	if removed {
		slog.Info("Deleted transaction", "user_id", s.userID, "id", id)
	}
	return removed, nil
}

// Get returns one transaction owned by the bound user.
func (s *TransactionStore) Get(ctx context.Context, id string) (*model.Transaction, error) {
	if s.userID == "" {
		return nil, fmt.Errorf("transaction %q: %w", id, common.ErrNotFound)
	}
	return s.storage.GetTransaction(ctx, s.userID, id)
}

// Query returns the bound user's transactions matching filter, newest first.
func (s *TransactionStore) Query(ctx context.Context, filter *model.TransactionFilter) ([]model.Transaction, error) {
	if s.userID == "" {
		return nil, nil
	}
	return s.storage.FindTransactions(ctx, BuildQuery(s.userID, filter))
}

// Count returns how many of the bound user's transactions match filter.
func (s *TransactionStore) Count(ctx context.Context, filter *model.TransactionFilter) (int64, error) {
	if s.userID == "" {
		return 0, nil
	}
	return s.storage.CountTransactions(ctx, BuildQuery(s.userID, filter))
}

// ByDateRange returns the transactions dated within [start, end]. Either bound may be nil.
func (s *TransactionStore) ByDateRange(ctx context.Context, start, end *model.DateBound) ([]model.Transaction, error) {
	return s.Query(ctx, &model.TransactionFilter{StartDate: start, EndDate: end})
}

// Summarize totals the transactions matching filter by type and category.
func (s *TransactionStore) Summarize(ctx context.Context, filter *model.TransactionFilter) (*model.TransactionSummary, error) {
	transactions, err := s.Query(ctx, filter)
	if err != nil {
		return nil, err
	}

	summary := &model.TransactionSummary{
		ByCategory: make(map[model.TransactionType]map[string]model.CategoryTotal),
	}
	for _, txn := range transactions {
		byName, ok := summary.ByCategory[txn.Type]
		if !ok {
			byName = make(map[string]model.CategoryTotal)
			summary.ByCategory[txn.Type] = byName
		}
		total := byName[txn.Category]
		total.Count++
		total.Amount += txn.Amount
		byName[txn.Category] = total

		switch txn.Type {
		case model.TransactionTypeIncome:
			summary.TotalIncome += txn.Amount
		case model.TransactionTypeExpense:
			summary.TotalExpenses += txn.Amount
		}
		summary.Count++
	}
	summary.Net = summary.TotalIncome - summary.TotalExpenses
	return summary, nil
}

func (s *TransactionStore) countByCategory(ctx context.Context, txnType model.TransactionType, name string) (int64, error) {
	if s.userID == "" {
		return 0, nil
	}
	return s.storage.CountTransactions(ctx, categoryQuery(s.userID, txnType, name))
}

// relink points every transaction linked to from at to.
func (s *TransactionStore) relink(ctx context.Context, txnType model.TransactionType, from, to string) (int64, error) {
	if s.userID == "" {
		return 0, nil
	}
	return s.storage.SetTransactionCategory(ctx, categoryQuery(s.userID, txnType, from), to, s.now())
}

func (s *TransactionStore) deleteByCategory(ctx context.Context, txnType model.TransactionType, name string) (int64, error) {
	if s.userID == "" {
		return 0, nil
	}
	return s.storage.DeleteTransactions(ctx, categoryQuery(s.userID, txnType, name))
}

func (s *TransactionStore) deleteAll(ctx context.Context) (int64, error) {
	if s.userID == "" {
		return 0, nil
	}
	return s.storage.DeleteTransactions(ctx, BuildQuery(s.userID, nil))
}

// validateFields checks whichever transaction fields are present.
func validateFields(txnType *model.TransactionType, category *string, amount *float64, date *time.Time) error {
	if txnType != nil && !txnType.Valid() {
		return fmt.Errorf("%w: unknown transaction type %q", common.ErrInvalidArgument, *txnType)
	}
	if category != nil && *category == "" {
		return fmt.Errorf("%w: category is required", common.ErrInvalidArgument)
	}
	if amount != nil && (!(*amount > 0) || math.IsInf(*amount, 0)) {
		return fmt.Errorf("%w: amount must be a positive finite number, got %v", common.ErrInvalidArgument, *amount)
	}
	if date != nil && date.IsZero() {
		return fmt.Errorf("%w: date is required", common.ErrInvalidArgument)
	}
	return nil
}
