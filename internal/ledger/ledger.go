// Package ledger keeps users, categories and transactions consistent with
// one another on top of a storage backend.
package ledger

import (
	"context"
	"fmt"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// Ledger bundles the three stores over one storage handle. The category and
// transaction stores it holds are unbound; use Session to scope them to a user.
type Ledger struct {
	Users        *UserStore
	Categories   *CategoryStore
	Transactions *TransactionStore
}

// New wires the stores to storage.
func New(storage service.Storage, defaults model.DefaultCategories) *Ledger {
	transactions := NewTransactionStore(storage)
	categories := NewCategoryStore(storage, transactions, defaults)
	return &Ledger{
		Users:        NewUserStore(storage, transactions, categories),
		Categories:   categories,
		Transactions: transactions,
	}
}

// Session is the category and transaction stores bound to one user.
type Session struct {
	Categories   *CategoryStore
	Transactions *TransactionStore
	UserID       string
}

// Session binds the stores to an existing user, seeding the default categories.
// Users whose deletion has started get ErrDeactivated.
func (l *Ledger) Session(ctx context.Context, userID string) (*Session, error) {
	user, err := l.Users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.PendingDeletion() {
		return nil, fmt.Errorf("user %s is being deleted: %w", userID, common.ErrDeactivated)
	}
	categories, err := l.Categories.WithUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Session{
		UserID:       userID,
		Categories:   categories,
		Transactions: l.Transactions.WithUser(userID),
	}, nil
}
