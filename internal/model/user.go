package model

import "time"

// User owns categories and transactions. Email is unique and case-sensitive.
type User struct {
	CreatedAt         time.Time  `json:"created_at"`
	LastModified      time.Time  `json:"last_modified"`
	DeletionStartedAt *time.Time `json:"deletion_started_at,omitempty"`
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	IsActive          bool       `json:"is_active"`
}

// PendingDeletion reports whether an account deletion was started but never finished.
func (u *User) PendingDeletion() bool {
	return u.DeletionStartedAt != nil
}
