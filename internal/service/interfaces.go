// Package service defines the contracts between the ledger core and its storage backends.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// Field names a queryable transaction attribute.
type Field string

// Queryable transaction fields.
const (
	FieldUserID      Field = "user_id"
	FieldType        Field = "type"
	FieldCategory    Field = "category"
	FieldAmount      Field = "amount"
	FieldDate        Field = "date"
	FieldDescription Field = "description"
)

// Operator is the comparison a Condition applies to its field.
type Operator int

const (
	// OpEqual matches documents whose field equals Value.
	OpEqual Operator = iota
	// OpRange matches documents whose field lies within [Lower, Upper]; a nil end is unbounded.
	OpRange
	// OpContains matches documents whose string field contains Value, ignoring case.
	OpContains
)

// Condition is one clause of a Query.
type Condition struct {
	Value any
	Lower any
	Upper any
	Field Field
	Op    Operator
}

// Query is a conjunction of conditions over the transactions collection.
// Clause order carries no meaning; backends may reorder for index use.
type Query struct {
	Conditions []Condition
}

// UserID returns the value of the owning-user equality clause, if any.
func (q Query) UserID() (string, bool) {
	for _, c := range q.Conditions {
		if c.Field == FieldUserID && c.Op == OpEqual {
			id, ok := c.Value.(string)
			return id, ok
		}
	}
	return "", false
}

// CategoryFilter narrows a category listing for one user.
type CategoryFilter struct {
	Type         model.TransactionType
	ExcludeNames []string
}

// UserStorage persists user documents.
type UserStorage interface {
	InsertUser(ctx context.Context, user *model.User) (string, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	DeactivateUser(ctx context.Context, id string, at time.Time) (bool, error)
	MarkUserDeleting(ctx context.Context, id string, at time.Time) error
	GetUsersPendingDeletion(ctx context.Context) ([]model.User, error)
	DeleteUser(ctx context.Context, id string) (int64, error)
}

// CategoryStorage persists category documents.
type CategoryStorage interface {
	UpsertCategory(ctx context.Context, userID string, categoryType model.TransactionType, name string, at time.Time) (id string, created bool, err error)
	GetCategory(ctx context.Context, userID string, categoryType model.TransactionType, name string) (*model.Category, error)
	RenameCategory(ctx context.Context, userID string, categoryType model.TransactionType, oldName, newName string, at time.Time) (bool, error)
	GetCategories(ctx context.Context, userID string, filter CategoryFilter) ([]model.Category, error)
	CountCategories(ctx context.Context, userID string, filter CategoryFilter) (int64, error)
	DeleteCategory(ctx context.Context, userID string, categoryType model.TransactionType, name string) (bool, error)
	DeleteCategories(ctx context.Context, userID string, filter CategoryFilter) (int64, error)
}

// TransactionStorage persists transaction documents.
type TransactionStorage interface {
	InsertTransaction(ctx context.Context, txn *model.Transaction) (string, error)
	GetTransaction(ctx context.Context, userID, id string) (*model.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, id string, update model.TransactionUpdate, at time.Time) (bool, error)
	DeleteTransaction(ctx context.Context, userID, id string) (bool, error)
	FindTransactions(ctx context.Context, query Query) ([]model.Transaction, error)
	CountTransactions(ctx context.Context, query Query) (int64, error)
	SetTransactionCategory(ctx context.Context, query Query, category string, at time.Time) (int64, error)
	DeleteTransactions(ctx context.Context, query Query) (int64, error)
}

// Storage defines the contract for our persistence layer.
// Implementations must be safe for concurrent use.
type Storage interface {
	UserStorage
	CategoryStorage
	TransactionStorage

	Ping(ctx context.Context) error
	Close() error
}
