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
	"github.com/commltd/authcore/internal/server/config"
	"github.com/commltd/authcore/internal/server/models"
	"github.com/commltd/authcore/internal/server/notify"
	"github.com/commltd/authcore/internal/server/repositories/repomanager"
)

// IssueResult reports the user a verification code was issued for.
type IssueResult struct {
	UserID string
}

// VerificationService issues and confirms the time-boxed single-use
// codes that gate password reset.
type VerificationService struct {
	db             *sql.DB
	repos          repomanager.RepositoryManager
	notifier       notify.Notifier
	codeTTL        time.Duration
	graceWindow    time.Duration
	storageTimeout time.Duration
}

// NewVerificationService wires a VerificationService.
func NewVerificationService(db *sql.DB, m repomanager.RepositoryManager, n notify.Notifier, cfg *config.Config) *VerificationService {
	return &VerificationService{
		db:             db,
		repos:          m,
		notifier:       n,
		codeTTL:        cfg.CodeTTL,
		graceWindow:    cfg.VerifiedGraceWindow,
		storageTimeout: cfg.StorageTimeout,
	}
}

// IssueCode resolves a user by email or ID, persists a fresh code with
// the configured TTL, and dispatches it through the notifier. The code
// row is persisted before the send attempt; a delivery failure leaves
// the row in place but is reported so the caller does not treat the
// issuance as successful.
func (s *VerificationService) IssueCode(ctx context.Context, identity string) (*IssueResult, error) {
	if identity == "" {
		return nil, fmt.Errorf("%w: missing parameters: email", common.ErrorValidation)
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	user, err := s.repos.Users(s.db).GetByEmailOrID(storeCtx, identity)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorStorage
	}

	code := &models.VerificationCode{
		UserID: user.UserID,
		Code:   cryptox.NewVerificationCode(),
	}
	if err := s.repos.VerificationCodes(s.db).Create(storeCtx, code, s.codeTTL); err != nil {
		return nil, common.ErrorStorage
	}

	if err := s.notifier.Send(ctx, user.Email, code.Code); err != nil {
		return nil, common.ErrorDelivery
	}

	return &IssueResult{UserID: user.UserID}, nil
}

// ConfirmCode marks the user's code used iff it is the most recently
// issued one, unused, and unexpired. Older outstanding codes are
// implicitly invalid: only the newest ever confirms.
func (s *VerificationService) ConfirmCode(ctx context.Context, userID, code string) error {
	var missing []string
	if code == "" {
		missing = append(missing, "verification code")
	}
	if userID == "" {
		missing = append(missing, "user id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing fields: %s", common.ErrorValidation, strings.Join(missing, ", "))
	}

	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		ok, err := s.repos.VerificationCodes(tx).ConfirmLatest(ctx, userID, code)
		if err != nil {
			return err
		}
		if !ok {
			return common.ErrorCodeInvalidOrExpired
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrorCodeInvalidOrExpired) {
			return err
		}
		return common.ErrorStorage
	}
	return nil
}

// IsRecentlyVerified reports whether the user confirmed a code within
// the grace window. It gates password reset so a confirmation cannot be
// replayed long after the fact.
func (s *VerificationService) IsRecentlyVerified(ctx context.Context, userID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	verified, err := s.repos.VerificationCodes(s.db).HasRecentVerification(ctx, userID, s.graceWindow)
	if err != nil {
		return false, common.ErrorStorage
	}
	return verified, nil
}
