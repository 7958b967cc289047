package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/commltd/authcore/internal/common"
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

const userColumns = `user_id, username, email, first_name, last_name, password_hash, salt, failed_login_count, created_at`

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.UserID, &user.Username, &user.Email, &user.FirstName,
		&user.LastName, &user.PasswordHash, &user.Salt, &user.FailedLoginCount, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (user_id, username, email, first_name, last_name, password_hash, salt)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.UserID, user.Username, user.Email, user.FirstName, user.LastName,
		user.PasswordHash, user.Salt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1
	`
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *PostgresRepository) GetByEmailOrID(ctx context.Context, identity string) (*models.User, error) {
	// An identity containing '@' is treated as an email address,
	// otherwise as a user ID.
	column := "user_id"
	if strings.Contains(identity, "@") {
		column = "email"
	}
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE ` + column + ` = $1
	`
	return scanUser(r.db.QueryRowContext(ctx, query, identity))
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE user_id = $1
		FOR UPDATE
	`
	return scanUser(r.db.QueryRowContext(ctx, query, userID))
}

func (r *PostgresRepository) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM users WHERE username = $1 OR email = $2
		)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, username, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

// IncrementFailedLogins performs the read-modify-write as one statement so
// two concurrent failed logins cannot both observe the same counter value.
func (r *PostgresRepository) IncrementFailedLogins(ctx context.Context, userID string, max int) (int, bool, error) {
	query := `
		UPDATE users
		SET failed_login_count = failed_login_count + 1
		WHERE user_id = $1 AND failed_login_count < $2
		RETURNING failed_login_count
	`
	var count int
	err := r.db.QueryRowContext(ctx, query, userID, max).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("db error: %w", err)
	}
	return count, true, nil
}

func (r *PostgresRepository) ResetFailedLogins(ctx context.Context, userID string, max int) (bool, error) {
	query := `
		UPDATE users
		SET failed_login_count = 0
		WHERE user_id = $1 AND failed_login_count < $2
	`
	result, err := r.db.ExecContext(ctx, query, userID, max)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return affected == 1, nil
}

func (r *PostgresRepository) Unlock(ctx context.Context, username string) (bool, error) {
	query := `
		UPDATE users
		SET failed_login_count = 0
		WHERE username = $1
	`
	result, err := r.db.ExecContext(ctx, query, username)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return affected == 1, nil
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, userID string, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2
		WHERE user_id = $1
	`
	result, err := r.db.ExecContext(ctx, query, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if affected == 0 {
		return common.ErrorNotFound
	}
	return nil
}
