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

// UserStore owns user documents and orchestrates account deletion across the
// transaction and category stores.
type UserStore struct {
	users        service.UserStorage
	transactions *TransactionStore
	categories   *CategoryStore
	now          func() time.Time
}

// NewUserStore creates a user store. transactions and categories may be unbound;
// they are scoped per user as needed.
func NewUserStore(users service.UserStorage, transactions *TransactionStore, categories *CategoryStore) *UserStore {
	return &UserStore{
		users:        users,
		transactions: transactions,
		categories:   categories,
		now:          time.Now,
	}
}

// Login finds the user with email, creating one on first login.
// An inactive account fails with common.ErrDeactivated.
func (s *UserStore) Login(ctx context.Context, email string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", fmt.Errorf("%w: email is required", common.ErrInvalidArgument)
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, common.ErrNotFound) {
		id, createErr := s.Create(ctx, email)
		if createErr == nil {
			return id, nil
		}
		if !errors.Is(createErr, common.ErrConflict) {
			return "", createErr
		}
		// A concurrent login created the user first.
		user, err = s.users.GetUserByEmail(ctx, email)
	}
	if err != nil {
		return "", fmt.Errorf("failed to log in: %w", err)
	}

	if !user.IsActive {
		return "", fmt.Errorf("login %q: %w", email, common.ErrDeactivated)
	}
	return user.ID, nil
}

// Create inserts a new active user. An existing email is common.ErrConflict.
func (s *UserStore) Create(ctx context.Context, email string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", fmt.Errorf("%w: email is required", common.ErrInvalidArgument)
	}

	now := s.now()
	id, err := s.users.InsertUser(ctx, &model.User{
		Email:        email,
		IsActive:     true,
		CreatedAt:    now,
		LastModified: now,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("Created user", "user_id", id)
	return id, nil
}

// Deactivate turns an active user inactive. It fails with common.ErrNotFound
// when no active user has that identity.
func (s *UserStore) Deactivate(ctx context.Context, id string) error {
	changed, err := s.users.DeactivateUser(ctx, id, s.now())
	if err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}
	if !changed {
		return fmt.Errorf("active user %q: %w", id, common.ErrNotFound)
	}
	slog.Info("Deactivated user", "user_id", id)
	return nil
}

// Get returns the user with that identity.
func (s *UserStore) Get(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// DataSummary counts what DeleteCascade would remove: every transaction and
// every category whose name is not a default.
func (s *UserStore) DataSummary(ctx context.Context, id string) (model.DataSummary, error) {
	var summary model.DataSummary
	if _, err := s.users.GetUserByID(ctx, id); err != nil {
		return summary, err
	}

	var err error
	if summary.Transactions, err = s.transactions.WithUser(id).Count(ctx, nil); err != nil {
		return summary, fmt.Errorf("failed to count transactions: %w", err)
	}
	if summary.Categories, err = s.categories.bind(id).CountUserCategories(ctx, true); err != nil {
		return summary, fmt.Errorf("failed to count categories: %w", err)
	}
	return summary, nil
}

// DeleteCascade deletes the user's transactions, then their non-default
// categories, then the user. A deletion marker is stored on the user before
// anything is removed, so a failed cascade can be resumed by calling
// DeleteCascade again or ResumeDeletions. Errors after the marker wrap
// common.ErrCascadeFailed and come with the counts removed so far.
func (s *UserStore) DeleteCascade(ctx context.Context, id string) (model.DeletionSummary, error) {
	var summary model.DeletionSummary

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return summary, err
	}

	if !user.PendingDeletion() {
		if err := s.users.MarkUserDeleting(ctx, id, s.now()); err != nil {
			return summary, cascadeErr("mark", err)
		}
	} else {
		slog.Warn("Resuming interrupted account deletion", "user_id", id, "started_at", user.DeletionStartedAt)
	}

	if summary.Transactions, err = s.transactions.WithUser(id).deleteAll(ctx); err != nil {
		return summary, cascadeErr("transactions", err)
	}
	if summary.Categories, err = s.categories.bind(id).DeleteUserCategories(ctx, true); err != nil {
		return summary, cascadeErr("categories", err)
	}
	if summary.User, err = s.users.DeleteUser(ctx, id); err != nil {
		return summary, cascadeErr("user", err)
	}

	slog.Info("Deleted account",
		"user_id", id,
		"transactions", summary.Transactions,
		"categories", summary.Categories)
	return summary, nil
}

func cascadeErr(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", common.ErrCascadeFailed, step, err)
}

// PendingDeletions lists accounts whose deletion started but did not finish.
func (s *UserStore) PendingDeletions(ctx context.Context) ([]model.User, error) {
	return s.users.GetUsersPendingDeletion(ctx)
}

// ResumeDeletions finishes every interrupted account deletion and returns how
// many completed. Failures are joined and returned together.
func (s *UserStore) ResumeDeletions(ctx context.Context) (int, error) {
	pending, err := s.users.GetUsersPendingDeletion(ctx)
	if err != nil {
		return 0, err
	}

	completed := 0
	var errs []error
	for _, user := range pending {
		if _, err := s.DeleteCascade(ctx, user.ID); err != nil {
			errs = append(errs, fmt.Errorf("user %s: %w", user.ID, err))
			continue
		}
		completed++
	}
	return completed, errors.Join(errs...)
}
