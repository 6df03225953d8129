package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// UpsertResult describes the outcome of CategoryStore.Upsert.
type UpsertResult struct {
	ID       string `json:"id"`
	Created  bool   `json:"created"`
	Relinked int64  `json:"relinked"`
}

// DeleteResult describes the outcome of CategoryStore.DeleteSafe.
type DeleteResult struct {
	Reassigned int64 `json:"reassigned"`
	Cascaded   int64 `json:"cascaded"`
	Deleted    bool  `json:"deleted"`
}

// CategoryStore owns category documents for one user at a time and keeps
// transactions linked to them consistent. Every operation on an unbound store
// is a no-op returning zero values.
type CategoryStore struct {
	storage      service.CategoryStorage
	transactions *TransactionStore
	defaults     model.DefaultCategories
	now          func() time.Time
	userID       string
}

// NewCategoryStore creates an unbound store. transactions is used, scoped to
// the same user, for reference counts, reassignment and cascades.
func NewCategoryStore(storage service.CategoryStorage, transactions *TransactionStore, defaults model.DefaultCategories) *CategoryStore {
	return &CategoryStore{
		storage:      storage,
		transactions: transactions,
		defaults:     defaults,
		now:          time.Now,
	}
}

// WithUser returns a copy scoped to userID after seeding the default categories
// for that user. Seeding is idempotent.
func (s *CategoryStore) WithUser(ctx context.Context, userID string) (*CategoryStore, error) {
	bound := s.bind(userID)
	if _, err := bound.SeedDefaults(ctx); err != nil {
		return nil, err
	}
	return bound, nil
}

func (s *CategoryStore) bind(userID string) *CategoryStore {
	bound := *s
	bound.userID = userID
	bound.transactions = s.transactions.WithUser(userID)
	return &bound
}

// UserID returns the bound user, or "" when unbound.
func (s *CategoryStore) UserID() string {
	return s.userID
}

// Defaults returns the configured default names.
func (s *CategoryStore) Defaults() model.DefaultCategories {
	return s.defaults
}

// IsDefault reports whether name is one of the configured defaults of any type.
// A custom category sharing a default's name counts as a default.
func (s *CategoryStore) IsDefault(name string) bool {
	return s.defaults.Contains(name)
}

// SeedDefaults upserts every default category for the bound user and returns
// how many were newly created.
func (s *CategoryStore) SeedDefaults(ctx context.Context) (int, error) {
	if s.userID == "" {
		return 0, nil
	}

	created := 0
	for _, txnType := range model.TransactionTypes {
		for _, name := range s.defaults[txnType] {
			_, isNew, err := s.storage.UpsertCategory(ctx, s.userID, txnType, name, s.now())
			if err != nil {
				return created, fmt.Errorf("failed to seed default category %q: %w", name, err)
			}
			if isNew {
				created++
			}
		}
	}

	if created > 0 {
		slog.Info("Seeded default categories", "user_id", s.userID, "created", created)
	}
	return created, nil
}

// Upsert creates the category or refreshes its last_modified. When oldName is
// given and differs from name, the category is renamed instead and its
// transactions relinked.
func (s *CategoryStore) Upsert(ctx context.Context, txnType model.TransactionType, name, oldName string) (UpsertResult, error) {
	if s.userID == "" {
		return UpsertResult{}, nil
	}
	name = strings.TrimSpace(name)
	oldName = strings.TrimSpace(oldName)

	if oldName != "" && oldName != name {
		relinked, err := s.Rename(ctx, txnType, oldName, name)
		if err != nil {
			return UpsertResult{}, err
		}
		cat, err := s.storage.GetCategory(ctx, s.userID, txnType, name)
		if err != nil {
			return UpsertResult{}, err
		}
		return UpsertResult{ID: cat.ID, Relinked: relinked}, nil
	}

	if err := validateCategory(txnType, name); err != nil {
		return UpsertResult{}, err
	}
	id, created, err := s.storage.UpsertCategory(ctx, s.userID, txnType, name, s.now())
	if err != nil {
		return UpsertResult{}, fmt.Errorf("failed to upsert category: %w", err)
	}
	if created {
		slog.Info("Created category", "user_id", s.userID, "type", txnType, "name", name)
	}
	return UpsertResult{ID: id, Created: created}, nil
}

// Rename renames a category and rewrites every linked transaction, returning
// how many were relinked. Renaming onto an existing category is
// common.ErrConflict. If the category was already renamed but its
// transactions were not, calling Rename again finishes the relink.
func (s *CategoryStore) Rename(ctx context.Context, txnType model.TransactionType, oldName, newName string) (int64, error) {
	if s.userID == "" {
		return 0, nil
	}
	oldName = strings.TrimSpace(oldName)
	newName = strings.TrimSpace(newName)
	if err := validateCategory(txnType, oldName); err != nil {
		return 0, err
	}
	if err := validateCategory(txnType, newName); err != nil {
		return 0, err
	}
	if oldName == newName {
		return 0, nil
	}

	oldExists, err := s.exists(ctx, txnType, oldName)
	if err != nil {
		return 0, err
	}
	newExists, err := s.exists(ctx, txnType, newName)
	if err != nil {
		return 0, err
	}

	switch {
	case oldExists && newExists:
		return 0, fmt.Errorf("%s category %q already exists: %w", txnType, newName, common.ErrConflict)
	case !oldExists && !newExists:
		return 0, fmt.Errorf("%s category %q: %w", txnType, oldName, common.ErrNotFound)
	case oldExists:
		renamed, renameErr := s.storage.RenameCategory(ctx, s.userID, txnType, oldName, newName, s.now())
		if renameErr != nil {
			return 0, fmt.Errorf("failed to rename category: %w", renameErr)
		}
		if !renamed {
			return 0, fmt.Errorf("%s category %q: %w", txnType, oldName, common.ErrNotFound)
		}
	}

	relinked, err := s.transactions.relink(ctx, txnType, oldName, newName)
	if err != nil {
		return 0, fmt.Errorf("failed to relink transactions from %q to %q: %w", oldName, newName, err)
	}

	slog.Info("Renamed category",
		"user_id", s.userID,
		"type", txnType,
		"from", oldName,
		"to", newName,
		"relinked", relinked)
	return relinked, nil
}

// DeleteSafe deletes a category, first applying strategy to the transactions
// that reference it. The category document is always removed last.
func (s *CategoryStore) DeleteSafe(ctx context.Context, txnType model.TransactionType, name string, strategy model.DeleteStrategy, newCategory string) (DeleteResult, error) {
	var result DeleteResult
	if s.userID == "" {
		return result, nil
	}
	switch strategy {
	case model.StrategyBlock, model.StrategyReassign, model.StrategyCascade:
	default:
		return result, fmt.Errorf("%w: strategy must be Block, Reassign or Cascade, got %q", common.ErrInvalidArgument, strategy)
	}
	name = strings.TrimSpace(name)
	newCategory = strings.TrimSpace(newCategory)
	if err := validateCategory(txnType, name); err != nil {
		return result, err
	}

	exists, err := s.exists(ctx, txnType, name)
	if err != nil {
		return result, err
	}
	if !exists {
		return result, fmt.Errorf("%s category %q: %w", txnType, name, common.ErrNotFound)
	}

	refs, err := s.transactions.countByCategory(ctx, txnType, name)
	if err != nil {
		return result, fmt.Errorf("failed to count transactions: %w", err)
	}

	switch strategy {
	case model.StrategyBlock:
		if refs > 0 {
			return result, fmt.Errorf("%s category %q has %d transactions: %w", txnType, name, refs, common.ErrInUse)
		}

	case model.StrategyReassign:
		if newCategory != "" {
			if newCategory == name {
				return result, fmt.Errorf("%w: cannot reassign %q to itself", common.ErrInvalidArgument, name)
			}
			targetExists, targetErr := s.exists(ctx, txnType, newCategory)
			if targetErr != nil {
				return result, targetErr
			}
			if !targetExists {
				return result, fmt.Errorf("reassignment target %s category %q: %w", txnType, newCategory, common.ErrNotFound)
			}
		}
		if refs > 0 {
			if newCategory == "" {
				return result, fmt.Errorf("%w: %q has %d transactions and no reassignment target", common.ErrInvalidArgument, name, refs)
			}
			result.Reassigned, err = s.transactions.relink(ctx, txnType, name, newCategory)
			if err != nil {
				return result, fmt.Errorf("failed to reassign transactions: %w", err)
			}
		}

	case model.StrategyCascade:
		if refs > 0 {
			result.Cascaded, err = s.transactions.deleteByCategory(ctx, txnType, name)
			if err != nil {
				return result, fmt.Errorf("failed to delete transactions: %w", err)
			}
		}
	}

	result.Deleted, err = s.storage.DeleteCategory(ctx, s.userID, txnType, name)
	if err != nil {
		return result, fmt.Errorf("failed to delete category: %w", err)
	}
	if !result.Deleted {
		return result, fmt.Errorf("%s category %q: %w", txnType, name, common.ErrNotFound)
	}

	slog.Info("Deleted category",
		"user_id", s.userID,
		"type", txnType,
		"name", name,
		"strategy", strategy,
		"reassigned", result.Reassigned,
		"cascaded", result.Cascaded)
	return result, nil
}

// OtherCategories lists the categories of txnType except excludeName, for
// picking a reassignment target.
func (s *CategoryStore) OtherCategories(ctx context.Context, txnType model.TransactionType, excludeName string) ([]model.Category, error) {
	if s.userID == "" {
		return nil, nil
	}
	return s.storage.GetCategories(ctx, s.userID, service.CategoryFilter{
		Type:         txnType,
		ExcludeNames: []string{strings.TrimSpace(excludeName)},
	})
}

// CountTransactions returns how many transactions reference the category.
func (s *CategoryStore) CountTransactions(ctx context.Context, txnType model.TransactionType, name string) (int64, error) {
	return s.transactions.countByCategory(ctx, txnType, strings.TrimSpace(name))
}

// ListByType lists the categories of one type. Callers must not depend on the order.
func (s *CategoryStore) ListByType(ctx context.Context, txnType model.TransactionType) ([]model.Category, error) {
	if s.userID == "" {
		return nil, nil
	}
	return s.storage.GetCategories(ctx, s.userID, service.CategoryFilter{Type: txnType})
}

// CountUserCategories counts the user's categories, optionally leaving out defaults.
func (s *CategoryStore) CountUserCategories(ctx context.Context, excludeDefaults bool) (int64, error) {
	if s.userID == "" {
		return 0, nil
	}
	return s.storage.CountCategories(ctx, s.userID, s.userFilter(excludeDefaults))
}

// DeleteUserCategories deletes the user's categories, optionally keeping defaults.
func (s *CategoryStore) DeleteUserCategories(ctx context.Context, excludeDefaults bool) (int64, error) {
	if s.userID == "" {
		return 0, nil
	}
	deleted, err := s.storage.DeleteCategories(ctx, s.userID, s.userFilter(excludeDefaults))
	if err != nil {
		return 0, fmt.Errorf("failed to delete user categories: %w", err)
	}
	return deleted, nil
}

func (s *CategoryStore) userFilter(excludeDefaults bool) service.CategoryFilter {
	if !excludeDefaults {
		return service.CategoryFilter{}
	}
	return service.CategoryFilter{ExcludeNames: s.defaults.Names()}
}

func (s *CategoryStore) exists(ctx context.Context, txnType model.TransactionType, name string) (bool, error) {
	_, err := s.storage.GetCategory(ctx, s.userID, txnType, name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, common.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("failed to look up category %q: %w", name, err)
	}
}

func validateCategory(txnType model.TransactionType, name string) error {
	if !txnType.Valid() {
		return fmt.Errorf("%w: unknown category type %q", common.ErrInvalidArgument, txnType)
	}
	if name == "" {
		return fmt.Errorf("%w: category name is required", common.ErrInvalidArgument)
	}
	return nil
}
