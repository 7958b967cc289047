// Package services implements the credential core operations: account
// registration and login, verification-code issuance and confirmation,
// and the password change/reset workflow. Services compose repositories
// through the repository manager and convert storage failures into the
// shared sentinel errors at the boundary.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/commltd/authcore/internal/common"
	"github.com/commltd/authcore/internal/cryptox"
	"github.com/commltd/authcore/internal/dbx"
	"github.com/commltd/authcore/internal/policy"
	"github.com/commltd/authcore/internal/server/config"
	"github.com/commltd/authcore/internal/server/models"
	"github.com/commltd/authcore/internal/server/repositories/repomanager"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// Account is the caller-visible view of a user record. The login path
// returns it as the bare identity result; no session tokens are issued.
type Account struct {
	UserID    string
	Username  string
	Email     string
	FirstName string
	LastName  string
}

func accountOf(u *models.User) *Account {
	return &Account{
		UserID:    u.UserID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// RegisterInput carries the typed registration request.
type RegisterInput struct {
	FirstName string
	LastName  string
	Username  string
	Email     string
	Password  string
}

// Validate reports missing required fields in the order the API
// documents them.
func (in *RegisterInput) Validate() error {
	var missing []string
	if in.FirstName == "" {
		missing = append(missing, "first_name")
	}
	if in.LastName == "" {
		missing = append(missing, "last_name")
	}
	if in.Username == "" {
		missing = append(missing, "username")
	}
	if in.Email == "" {
		missing = append(missing, "email")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing parameters: %s", common.ErrorValidation, strings.Join(missing, ","))
	}
	return nil
}

// LoginInput carries the typed login request.
type LoginInput struct {
	Username string
	Password string
}

func (in *LoginInput) Validate() error {
	var missing []string
	if in.Username == "" {
		missing = append(missing, "username")
	}
	if in.Password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing parameters: %s", common.ErrorValidation, strings.Join(missing, ","))
	}
	return nil
}

// AccountService implements registration, login with attempt lockout,
// and the explicit admin unlock.
type AccountService struct {
	db             *sql.DB
	repos          repomanager.RepositoryManager
	policy         *policy.Policy
	secretKey      string
	storageTimeout time.Duration
}

// NewAccountService wires an AccountService. The HMAC secret comes from
// configuration; it is held here and never exposed.
func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, p *policy.Policy, cfg *config.Config) *AccountService {
	return &AccountService{
		db:             db,
		repos:          m,
		policy:         p,
		secretKey:      cfg.SecretKey,
		storageTimeout: cfg.StorageTimeout,
	}
}

// Register creates a new account. The user ID derives deterministically
// from username+email, the salt is fresh per user, and the first
// password-history entry is written in the same transaction as the user
// row.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*Account, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	exists, err := s.repos.Users(s.db).ExistsByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil {
		return nil, common.ErrorStorage
	}
	if exists {
		return nil, common.ErrorAlreadyExists
	}

	if v := s.policy.Validate(in.Password); v != nil {
		return nil, v
	}

	salt, err := cryptox.GenerateSalt(cryptox.DefaultSaltLength)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{
		UserID:       cryptox.DeriveIdentifier(in.Username + in.Email),
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: cryptox.HashPassword(in.Password, salt, s.secretKey),
		Salt:         salt,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Users(tx).Create(ctx, user); err != nil {
			return err
		}
		return s.repos.PasswordHistory(tx).Append(ctx, &models.PasswordHistoryEntry{
			UserID:       user.UserID,
			PasswordHash: user.PasswordHash,
			Salt:         user.Salt,
		})
	})
	if err != nil {
		// The existence check above races with concurrent registration;
		// the unique constraints are the authority.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, common.ErrorAlreadyExists
		}
		return nil, common.ErrorStorage
	}

	return accountOf(user), nil
}

// Login authenticates a username/password pair. An unknown username and a
// wrong password are indistinguishable to the caller. A locked account
// rejects even the correct password and consumes no further attempts;
// lockout is permanent until an explicit unlock.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (*Account, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	repo := s.repos.Users(s.db)

	user, err := repo.GetByUsername(ctx, in.Username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInvalidCredentials
		}
		return nil, common.ErrorStorage
	}

	max := s.policy.MaxLoginAttempts
	if user.FailedLoginCount >= max {
		return nil, common.ErrorAccountLocked
	}

	candidate := cryptox.HashPassword(in.Password, user.Salt, s.secretKey)
	if !cryptox.HashEqual(candidate, user.PasswordHash) {
		// Conditional single-statement increment; a concurrent failure
		// cannot overwrite this one.
		if _, _, err := repo.IncrementFailedLogins(ctx, user.UserID, max); err != nil {
			return nil, common.ErrorStorage
		}
		return nil, common.ErrorInvalidCredentials
	}

	applied, err := repo.ResetFailedLogins(ctx, user.UserID, max)
	if err != nil {
		return nil, common.ErrorStorage
	}
	if !applied {
		// Lost the race against a concurrent lockout.
		return nil, common.ErrorAccountLocked
	}

	return accountOf(user), nil
}

// Unlock clears the failed-login counter for a username. This is the
// administrative escape hatch for the otherwise terminal locked state.
func (s *AccountService) Unlock(ctx context.Context, username string) error {
	if username == "" {
		return fmt.Errorf("%w: missing parameters: username", common.ErrorValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	ok, err := s.repos.Users(s.db).Unlock(ctx, username)
	if err != nil {
		return common.ErrorStorage
	}
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}
