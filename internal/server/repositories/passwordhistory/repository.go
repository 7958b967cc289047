// Package passwordhistory declares the repository contract for the
// append-only ledger of previously used password hashes.
package passwordhistory

import (
	"context"

	"github.com/commltd/authcore/internal/server/models"
)

// Repository defines operations over the password-history ledger. Entries
// are only ever appended; nothing updates or deletes them.
type Repository interface {
	// Append stores a new ledger entry.
	Append(ctx context.Context, entry *models.PasswordHistoryEntry) error

	// LastHashes returns up to n password hashes for the user, newest
	// first.
	LastHashes(ctx context.Context, userID string, n int) ([]string, error)
}
