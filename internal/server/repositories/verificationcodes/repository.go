// Package verificationcodes declares the repository contract for the
// time-boxed single-use verification codes tied to users.
package verificationcodes

import (
	"context"
	"time"

	"github.com/commltd/authcore/internal/server/models"
)

// Repository defines storage operations over verification codes.
type Repository interface {
	// Create persists a new code row with an expiry of now+ttl. Issuance
	// timestamps come from the database clock so the per-user ordering
	// of rows stays unambiguous.
	Create(ctx context.Context, code *models.VerificationCode, ttl time.Duration) error

	// ConfirmLatest marks the code used iff it is the most recently
	// issued code for the user, is unused, and has not expired. It locks
	// the candidate row, so callers must invoke it inside a transaction.
	// Returns whether the confirmation applied.
	ConfirmLatest(ctx context.Context, userID, code string) (bool, error)

	// HasRecentVerification reports whether a used code for the user was
	// verified strictly within the given grace window of now.
	HasRecentVerification(ctx context.Context, userID string, window time.Duration) (bool, error)
}
