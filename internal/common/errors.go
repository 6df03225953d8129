// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Lookup and validation errors.
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")

	// State errors.
	ErrConflict    = errors.New("conflict")
	ErrInUse       = errors.New("category has linked transactions")
	ErrDeactivated = errors.New("account deactivated")

	// Storage errors.
	ErrStorage       = errors.New("storage failure")
	ErrCascadeFailed = errors.New("cascade deletion failed")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// Describe turns an error from the ledger core into a short message fit for
// end users, keeping the underlying error attached.
func Describe(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrDeactivated):
		return NewUserError("This account is deactivated, please contact support", err)
	case errors.Is(err, ErrInUse):
		return NewUserError("Category still has transactions; choose Reassign or Cascade", err)
	case errors.Is(err, ErrConflict):
		return NewUserError("That name is already taken", err)
	case errors.Is(err, ErrNotFound):
		return NewUserError("Nothing found with that identifier", err)
	case errors.Is(err, ErrInvalidArgument):
		return NewUserError("Invalid input", err)
	case errors.Is(err, ErrCascadeFailed):
		return NewUserError("Deletion did not finish; run it again to resume", err)
	default:
		return err
	}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrStorage)
}
