package verificationcodes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/commltd/authcore/internal/dbx"
	"github.com/commltd/authcore/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create computes created_at and expiration_time from the same database
// now(), so the TTL cannot drift from clock skew between the server and
// the database.
func (r *PostgresRepository) Create(ctx context.Context, code *models.VerificationCode, ttl time.Duration) error {
	query := `
		INSERT INTO verification_codes (user_id, code, expiration_time)
		VALUES ($1, $2, now() + ($3 * interval '1 second'))
		RETURNING id, created_at, expiration_time
	`
	err := r.db.QueryRowContext(ctx, query, code.UserID, code.Code, ttl.Seconds()).
		Scan(&code.ID, &code.CreatedAt, &code.ExpirationTime)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ConfirmLatest locks the newest row for the user, checks the submitted
// code against it (only the newest code ever confirms, and only while
// unused and unexpired), and marks it used. Expiry is judged against the
// database clock returned alongside the row. Callers run this inside a
// transaction so the FOR UPDATE lock holds across the check and write.
func (r *PostgresRepository) ConfirmLatest(ctx context.Context, userID, code string) (bool, error) {
	query := `
		SELECT id, code, is_used, expiration_time, now()
		FROM verification_codes
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
		FOR UPDATE
	`
	var (
		latest models.VerificationCode
		now    time.Time
	)
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&latest.ID, &latest.Code, &latest.IsUsed, &latest.ExpirationTime, &now)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}

	// Expiry is inclusive: a code confirms up to and including its
	// expiration instant.
	if latest.IsUsed || latest.Code != code || now.After(latest.ExpirationTime) {
		return false, nil
	}

	update := `
		UPDATE verification_codes
		SET is_used = TRUE, verified_at = now()
		WHERE id = $1 AND is_used = FALSE
	`
	result, err := r.db.ExecContext(ctx, update, latest.ID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return affected == 1, nil
}

// HasRecentVerification loads the newest confirmation timestamp for the
// user and judges the window in Go against the database clock. A
// confirmation exactly window old no longer counts.
func (r *PostgresRepository) HasRecentVerification(ctx context.Context, userID string, window time.Duration) (bool, error) {
	query := `
		SELECT verified_at, now()
		FROM verification_codes
		WHERE user_id = $1
		  AND is_used = TRUE
		  AND verified_at IS NOT NULL
		ORDER BY verified_at DESC
		LIMIT 1
	`
	var verifiedAt, now time.Time
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&verifiedAt, &now)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return now.Sub(verifiedAt) < window, nil
}
