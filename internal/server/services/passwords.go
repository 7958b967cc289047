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
)

// ChangePasswordInput carries the typed change request. The caller must
// know the old password.
type ChangePasswordInput struct {
	UserID      string
	OldPassword string
	NewPassword string
}

func (in *ChangePasswordInput) Validate() error {
	var missing []string
	if in.OldPassword == "" {
		missing = append(missing, "old password")
	}
	if in.NewPassword == "" {
		missing = append(missing, "new password")
	}
	if in.UserID == "" {
		missing = append(missing, "user id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing parameters: %s", common.ErrorValidation, strings.Join(missing, ","))
	}
	return nil
}

// ResetPasswordInput carries the typed reset request. Reset is gated on
// a recently confirmed verification code instead of the old password.
type ResetPasswordInput struct {
	UserID      string
	NewPassword string
}

func (in *ResetPasswordInput) Validate() error {
	var missing []string
	if in.NewPassword == "" {
		missing = append(missing, "new_password")
	}
	if in.UserID == "" {
		missing = append(missing, "user_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing parameters: %s", common.ErrorValidation, strings.Join(missing, ","))
	}
	return nil
}

// PasswordService orchestrates the credential change workflow shared by
// change and reset.
type PasswordService struct {
	db             *sql.DB
	repos          repomanager.RepositoryManager
	verifications  *VerificationService
	policy         *policy.Policy
	secretKey      string
	storageTimeout time.Duration
}

// NewPasswordService wires a PasswordService.
func NewPasswordService(db *sql.DB, m repomanager.RepositoryManager, v *VerificationService, p *policy.Policy, cfg *config.Config) *PasswordService {
	return &PasswordService{
		db:             db,
		repos:          m,
		verifications:  v,
		policy:         p,
		secretKey:      cfg.SecretKey,
		storageTimeout: cfg.StorageTimeout,
	}
}

// ChangePassword verifies the old password, then applies the shared
// workflow: policy check, history check against the last historyCount
// entries, and the atomic credential update plus ledger append.
func (s *PasswordService) ChangePassword(ctx context.Context, in ChangePasswordInput) error {
	if err := in.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.repos.Users(tx).GetForUpdate(ctx, in.UserID)
		if err != nil {
			return err
		}

		oldHash := cryptox.HashPassword(in.OldPassword, user.Salt, s.secretKey)
		if !cryptox.HashEqual(oldHash, user.PasswordHash) {
			return common.ErrorIncorrectOldPassword
		}

		newHash := cryptox.HashPassword(in.NewPassword, user.Salt, s.secretKey)
		if cryptox.HashEqual(newHash, user.PasswordHash) {
			return common.ErrorSamePassword
		}

		return s.applyNewPassword(ctx, tx, user, in.NewPassword, newHash)
	})
	return s.mapWorkflowError(err)
}

// ResetPassword requires a recently confirmed verification code in place
// of the old password, then applies the shared workflow. The history
// check also covers "same as current": the current password is always
// the newest ledger entry.
func (s *PasswordService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if err := in.Validate(); err != nil {
		return err
	}

	verified, err := s.verifications.IsRecentlyVerified(ctx, in.UserID)
	if err != nil {
		return err
	}
	if !verified {
		return common.ErrorNotVerified
	}

	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		user, err := s.repos.Users(tx).GetForUpdate(ctx, in.UserID)
		if err != nil {
			return err
		}
		newHash := cryptox.HashPassword(in.NewPassword, user.Salt, s.secretKey)
		return s.applyNewPassword(ctx, tx, user, in.NewPassword, newHash)
	})
	return s.mapWorkflowError(err)
}

// applyNewPassword runs the shared tail of both workflows inside the
// caller's transaction: policy check, reuse check over the last
// historyCount hashes, credential update, ledger append. The row lock
// taken by GetForUpdate keeps the history snapshot and the writes from
// interleaving with a concurrent change for the same user.
func (s *PasswordService) applyNewPassword(ctx context.Context, tx dbx.DBTX, user *models.User, newPassword, newHash string) error {
	if v := s.policy.Validate(newPassword); v != nil {
		return v
	}

	hashes, err := s.repos.PasswordHistory(tx).LastHashes(ctx, user.UserID, s.policy.HistoryCount)
	if err != nil {
		return err
	}
	for _, h := range hashes {
		if cryptox.HashEqual(newHash, h) {
			return common.ErrorPasswordReused
		}
	}

	if err := s.repos.Users(tx).UpdatePassword(ctx, user.UserID, newHash); err != nil {
		return err
	}
	return s.repos.PasswordHistory(tx).Append(ctx, &models.PasswordHistoryEntry{
		UserID:       user.UserID,
		PasswordHash: newHash,
		Salt:         user.Salt,
	})
}

// mapWorkflowError passes through the sentinels and policy violations
// the workflow produces on purpose and folds everything else into the
// generic storage error.
func (s *PasswordService) mapWorkflowError(err error) error {
	if err == nil {
		return nil
	}
	var violation *policy.Violation
	switch {
	case errors.As(err, &violation),
		errors.Is(err, common.ErrorNotFound),
		errors.Is(err, common.ErrorIncorrectOldPassword),
		errors.Is(err, common.ErrorSamePassword),
		errors.Is(err, common.ErrorPasswordReused),
		errors.Is(err, common.ErrorNotVerified),
		errors.Is(err, common.ErrorStorage),
		errors.Is(err, common.ErrorValidation):
		return err
	default:
		return common.ErrorStorage
	}
}
