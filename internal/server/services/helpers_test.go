package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/commltd/authcore/internal/dbx"
	"github.com/commltd/authcore/internal/policy"
	"github.com/commltd/authcore/internal/server/config"
	"github.com/commltd/authcore/internal/server/models"
	historyrepo "github.com/commltd/authcore/internal/server/repositories/passwordhistory"
	usersrepo "github.com/commltd/authcore/internal/server/repositories/users"
	codesrepo "github.com/commltd/authcore/internal/server/repositories/verificationcodes"
)

// --- shared helpers ---

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func testPolicy() *policy.Policy {
	return &policy.Policy{
		MinLength:        1,
		MaxLoginAttempts: 3,
		HistoryCount:     3,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		SecretKey:           "k",
		StorageTimeout:      5 * time.Second,
		CodeTTL:             10 * time.Minute,
		VerifiedGraceWindow: 5 * time.Minute,
	}
}

type fakeUsersRepo struct {
	createErr error
	created   []*models.User

	byUsername    *models.User
	byUsernameErr error

	byIdentity    *models.User
	byIdentityErr error

	forUpdate    *models.User
	forUpdateErr error

	exists    bool
	existsErr error

	incCount   int
	incApplied bool
	incErr     error
	incCalls   int

	resetApplied bool
	resetErr     error
	resetCalls   int

	unlockOK  bool
	unlockErr error

	updateErr   error
	updatedHash string
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) error {
	f.created = append(f.created, u)
	return f.createErr
}

func (f *fakeUsersRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if f.byUsernameErr != nil {
		return nil, f.byUsernameErr
	}
	return f.byUsername, nil
}

func (f *fakeUsersRepo) GetByEmailOrID(ctx context.Context, identity string) (*models.User, error) {
	if f.byIdentityErr != nil {
		return nil, f.byIdentityErr
	}
	return f.byIdentity, nil
}

func (f *fakeUsersRepo) GetForUpdate(ctx context.Context, userID string) (*models.User, error) {
	if f.forUpdateErr != nil {
		return nil, f.forUpdateErr
	}
	return f.forUpdate, nil
}

func (f *fakeUsersRepo) ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeUsersRepo) IncrementFailedLogins(ctx context.Context, userID string, max int) (int, bool, error) {
	f.incCalls++
	return f.incCount, f.incApplied, f.incErr
}

func (f *fakeUsersRepo) ResetFailedLogins(ctx context.Context, userID string, max int) (bool, error) {
	f.resetCalls++
	return f.resetApplied, f.resetErr
}

func (f *fakeUsersRepo) Unlock(ctx context.Context, username string) (bool, error) {
	return f.unlockOK, f.unlockErr
}

func (f *fakeUsersRepo) UpdatePassword(ctx context.Context, userID string, passwordHash string) error {
	f.updatedHash = passwordHash
	return f.updateErr
}

type fakeHistoryRepo struct {
	appendErr error
	appended  []*models.PasswordHistoryEntry

	hashes    []string
	hashesErr error
}

func (f *fakeHistoryRepo) Append(ctx context.Context, entry *models.PasswordHistoryEntry) error {
	f.appended = append(f.appended, entry)
	return f.appendErr
}

func (f *fakeHistoryRepo) LastHashes(ctx context.Context, userID string, n int) ([]string, error) {
	if f.hashesErr != nil {
		return nil, f.hashesErr
	}
	return f.hashes, nil
}

type fakeCodesRepo struct {
	createErr error
	created   []*models.VerificationCode

	confirmOK  bool
	confirmErr error

	recent    bool
	recentErr error
}

func (f *fakeCodesRepo) Create(ctx context.Context, code *models.VerificationCode, ttl time.Duration) error {
	f.created = append(f.created, code)
	return f.createErr
}

func (f *fakeCodesRepo) ConfirmLatest(ctx context.Context, userID, code string) (bool, error) {
	return f.confirmOK, f.confirmErr
}

func (f *fakeCodesRepo) HasRecentVerification(ctx context.Context, userID string, window time.Duration) (bool, error) {
	return f.recent, f.recentErr
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	h *fakeHistoryRepo
	c *fakeCodesRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository       { return m.u }
func (m *fakeRepoManager) PasswordHistory(db dbx.DBTX) historyrepo.Repository {
	return m.h
}
func (m *fakeRepoManager) VerificationCodes(db dbx.DBTX) codesrepo.Repository {
	return m.c
}

type fakeNotifier struct {
	err      error
	sentTo   string
	sentCode string
}

func (f *fakeNotifier) Send(ctx context.Context, toAddress, code string) error {
	f.sentTo = toAddress
	f.sentCode = code
	return f.err
}
