// Package users declares the repository contract for the account records
// owned by the credential subsystem.
package users

import (
	"context"

	"github.com/commltd/authcore/internal/server/models"
)

// Repository defines storage operations over user accounts.
type Repository interface {
	// Create inserts a new user row.
	Create(ctx context.Context, user *models.User) error

	// GetByUsername returns the user with the given username, or a
	// not-found error.
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// GetByEmailOrID resolves a user by email address (when the identity
	// contains '@') or by user ID.
	GetByEmailOrID(ctx context.Context, identity string) (*models.User, error)

	// GetForUpdate reads the user row by ID while taking a row lock, so
	// concurrent credential changes for the same user serialize. Must be
	// called inside a transaction.
	GetForUpdate(ctx context.Context, userID string) (*models.User, error)

	// ExistsByUsernameOrEmail reports whether any user already holds the
	// given username or email.
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)

	// IncrementFailedLogins bumps the failed-login counter by one as a
	// single conditional update that only applies while the counter is
	// below max. Returns the new counter value and whether the update
	// applied; a skipped update means the account is already locked.
	IncrementFailedLogins(ctx context.Context, userID string, max int) (int, bool, error)

	// ResetFailedLogins sets the counter to zero, but only while the
	// account is not locked (counter below max). Returns whether the
	// reset applied.
	ResetFailedLogins(ctx context.Context, userID string, max int) (bool, error)

	// Unlock clears the failed-login counter unconditionally, by
	// username. Returns false if no such user exists.
	Unlock(ctx context.Context, username string) (bool, error)

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, userID string, passwordHash string) error
}
