package model

import (
	"strings"
	"time"
)

// TransactionType distinguishes money going out from money coming in.
type TransactionType string

const (
	// TransactionTypeExpense marks money leaving the user's accounts.
	TransactionTypeExpense TransactionType = "Expense"
	// TransactionTypeIncome marks money arriving in the user's accounts.
	TransactionTypeIncome TransactionType = "Income"
)

// TransactionTypes lists every valid transaction type in display order.
var TransactionTypes = []TransactionType{TransactionTypeExpense, TransactionTypeIncome}

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeExpense || t == TransactionTypeIncome
}

// ParseTransactionType resolves a user-supplied type name, ignoring case.
func ParseTransactionType(s string) (TransactionType, bool) {
	for _, t := range TransactionTypes {
		if strings.EqualFold(strings.TrimSpace(s), string(t)) {
			return t, true
		}
	}
	return "", false
}

// Transaction is a single income or expense entry owned by one user.
// Category holds the name of a category of the same type; the link is by name.
type Transaction struct {
	Date         time.Time       `json:"date"`
	CreatedAt    time.Time       `json:"created_at"`
	LastModified time.Time       `json:"last_modified"`
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Type         TransactionType `json:"type"`
	Category     string          `json:"category"`
	Description  string          `json:"description"`
	Amount       float64         `json:"amount"`
}

// TransactionUpdate is a partial update; nil fields are left untouched.
type TransactionUpdate struct {
	Type        *TransactionType `json:"type,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Amount      *float64         `json:"amount,omitempty"`
	Date        *time.Time       `json:"date,omitempty"`
	Description *string          `json:"description,omitempty"`
}

// IsEmpty reports whether the update sets no fields.
func (u TransactionUpdate) IsEmpty() bool {
	return u.Type == nil && u.Category == nil && u.Amount == nil && u.Date == nil && u.Description == nil
}
