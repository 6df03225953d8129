package model

import (
	"strings"
	"time"
)

// Category is a user-owned label for transactions of one type.
// (UserID, Type, Name) is unique.
type Category struct {
	CreatedAt    time.Time       `json:"created_at"`
	LastModified time.Time       `json:"last_modified"`
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	Name         string          `json:"name"`
	Type         TransactionType `json:"type"`
}

// DeleteStrategy controls what happens to transactions that reference a
// category being deleted.
type DeleteStrategy string

const (
	// StrategyBlock refuses the delete while any transaction references the category.
	StrategyBlock DeleteStrategy = "Block"
	// StrategyReassign moves referencing transactions to another category first.
	StrategyReassign DeleteStrategy = "Reassign"
	// StrategyCascade deletes referencing transactions first.
	StrategyCascade DeleteStrategy = "Cascade"
)

// DeleteStrategies lists every strategy in the order they are offered to users.
var DeleteStrategies = []DeleteStrategy{StrategyBlock, StrategyReassign, StrategyCascade}

// ParseDeleteStrategy resolves a strategy name, ignoring case.
func ParseDeleteStrategy(s string) (DeleteStrategy, bool) {
	for _, strategy := range DeleteStrategies {
		if strings.EqualFold(strings.TrimSpace(s), string(strategy)) {
			return strategy, true
		}
	}
	return "", false
}

// DefaultCategories holds the configured category names seeded for every user.
// Defaults are identified by name alone; nothing is stored to mark them.
type DefaultCategories map[TransactionType][]string

// Names returns every default name across all types, without duplicates.
func (d DefaultCategories) Names() []string {
	seen := make(map[string]bool)
	var names []string
	for _, t := range TransactionTypes {
		for _, name := range d[t] {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// Contains reports whether name is a default of any type.
func (d DefaultCategories) Contains(name string) bool {
	for _, names := range d {
		for _, n := range names {
			if n == name {
				return true
			}
		}
	}
	return false
}
