package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/commltd/authcore/internal/common"
	"github.com/commltd/authcore/internal/cryptox"
	"github.com/commltd/authcore/internal/policy"
	"github.com/commltd/authcore/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func validRegisterInput() RegisterInput {
	return RegisterInput{
		FirstName: "Alice",
		LastName:  "Smith",
		Username:  "alice",
		Email:     "alice@example.com",
		Password:  "Sup3rSecret!",
	}
}

func TestRegister_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectCommit()

	rm := &fakeRepoManager{u: &fakeUsersRepo{}, h: &fakeHistoryRepo{}}
	s := NewAccountService(db, rm, testPolicy(), testConfig())

	acc, err := s.Register(context.Background(), validRegisterInput())
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	wantID := cryptox.DeriveIdentifier("alice" + "alice@example.com")
	if acc.UserID != wantID {
		t.Fatalf("user id: want %s, got %s", wantID, acc.UserID)
	}
	if acc.Username != "alice" || acc.Email != "alice@example.com" {
		t.Fatalf("unexpected account: %+v", acc)
	}

	if len(rm.u.created) != 1 {
		t.Fatalf("expected a single user insert, got %d", len(rm.u.created))
	}
	u := rm.u.created[0]
	if len(u.Salt) != 2*cryptox.DefaultSaltLength {
		t.Fatalf("salt length: %d", len(u.Salt))
	}
	if u.PasswordHash != cryptox.HashPassword("Sup3rSecret!", u.Salt, "k") {
		t.Fatalf("stored hash does not match the derivation")
	}

	if len(rm.h.appended) != 1 {
		t.Fatalf("expected initial history entry, got %d", len(rm.h.appended))
	}
	if rm.h.appended[0].PasswordHash != u.PasswordHash || rm.h.appended[0].UserID != u.UserID {
		t.Fatalf("history entry mismatch: %+v", rm.h.appended[0])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRegister_MissingFields(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{}, h: &fakeHistoryRepo{}}
	s := NewAccountService(db, rm, testPolicy(), testConfig())

	_, err := s.Register(context.Background(), RegisterInput{Username: "alice"})
	if !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("want ErrorValidation, got %v", err)
	}
	for _, f := range []string{"first_name", "last_name", "email", "password"} {
		if !strings.Contains(err.Error(), f) {
			t.Fatalf("missing field %q not reported: %v", f, err)
		}
	}
}

func TestRegister_AlreadyExists(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{exists: true}, h: &fakeHistoryRepo{}}
	s := NewAccountService(db, rm, testPolicy(), testConfig())

	_, err := s.Register(context.Background(), validRegisterInput())
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("want ErrorAlreadyExists, got %v", err)
	}
}

func TestRegister_PolicyViolation(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	p := testPolicy()
	p.MinLength = 10
	rm := &fakeRepoManager{u: &fakeUsersRepo{}, h: &fakeHistoryRepo{}}
	s := NewAccountService(db, rm, p, testConfig())

	in := validRegisterInput()
	in.Password = "short"
	_, err := s.Register(context.Background(), in)

	var v *policy.Violation
	if !errors.As(err, &v) {
		t.Fatalf("want policy violation, got %v", err)
	}
	if v.Rule != policy.RuleMinLength {
		t.Fatalf("want min-length rule, got %v", v.Rule)
	}
}

func TestRegister_UniqueViolationRace(t *testing.T) {
	db, mock := newSQLMockDB(t)
	defer db.Close()
	mock.ExpectBegin()
	mock.ExpectRollback()

	// the existence check passed but a concurrent insert won the race
	rm := &fakeRepoManager{
		u: &fakeUsersRepo{createErr: &pgconn.PgError{Code: "23505"}},
		h: &fakeHistoryRepo{},
	}
	s := NewAccountService(db, rm, testPolicy(), testConfig())

	_, err := s.Register(context.Background(), validRegisterInput())
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("want ErrorAlreadyExists, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestRegister_StorageErr(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{existsErr: errBoom{}}, h: &fakeHistoryRepo{}}
	s := NewAccountService(db, rm, testPolicy(), testConfig())

	_, err := s.Register(context.Background(), validRegisterInput())
	if !errors.Is(err, common.ErrorStorage) {
		t.Fatalf("want ErrorStorage, got %v", err)
	}
}

func lockedOutUser(failed int) *models.User {
	salt := "aabbccdd"
	return &models.User{
		UserID:           "u1",
		Username:         "alice",
		Email:            "alice@example.com",
		Salt:             salt,
		PasswordHash:     cryptox.HashPassword("Sup3rSecret!", salt, "k"),
		FailedLoginCount: failed,
	}
}

func TestLogin_Success_ResetsCounter(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeUsersRepo{byUsername: lockedOutUser(2), resetApplied: true}
	rm := &fakeRepoManager{u: repo}
	s := NewAccountService(db, rm, testPolicy(), testConfig())

	acc, err := s.Login(context.Background(), LoginInput{Username: "alice", Password: "Sup3rSecret!"})
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if acc.UserID != "u1" {
		t.Fatalf("unexpected account: %+v", acc)
	}
	if repo.resetCalls != 1 {
		t.Fatalf("expected counter reset, got %d calls", repo.resetCalls)
	}
	if repo.incCalls != 0 {
		t.Fatalf("unexpected increment on success")
	}
}

func TestLogin_UnknownUser(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{byUsernameErr: common.ErrorNotFound}}
	s := NewAccountService(db, rm, testPolicy(), testConfig())

	// unknown username reads the same as a wrong password
	_, err := s.Login(context.Background(), LoginInput{Username: "ghost", Password: "x"})
	if !errors.Is(err, common.ErrorInvalidCredentials) {
		t.Fatalf("want ErrorInvalidCredentials, got %v", err)
	}
}

func TestLogin_WrongPassword_Increments(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeUsersRepo{byUsername: lockedOutUser(0), incApplied: true, incCount: 1}
	rm := &fakeRepoManager{u: repo}
	s := NewAccountService(db, rm, testPolicy(), testConfig())

	_, err := s.Login(context.Background(), LoginInput{Username: "alice", Password: "wrong"})
	if !errors.Is(err, common.ErrorInvalidCredentials) {
		t.Fatalf("want ErrorInvalidCredentials, got %v", err)
	}
	if repo.incCalls != 1 {
		t.Fatalf("expected one increment, got %d", repo.incCalls)
	}
}

func TestLogin_Locked_RejectsCorrectPassword(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	repo := &fakeUsersRepo{byUsername: lockedOutUser(3)}
	rm := &fakeRepoManager{u: repo}
	s := NewAccountService(db, rm, testPolicy(), testConfig())

	_, err := s.Login(context.Background(), LoginInput{Username: "alice", Password: "Sup3rSecret!"})
	if !errors.Is(err, common.ErrorAccountLocked) {
		t.Fatalf("want ErrorAccountLocked, got %v", err)
	}
	// a locked account consumes no further attempts
	if repo.incCalls != 0 {
		t.Fatalf("locked account must not increment, got %d", repo.incCalls)
	}
}

func TestLogin_LostRaceAgainstLockout(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	// the counter reached max between the read and the reset
	repo := &fakeUsersRepo{byUsername: lockedOutUser(2), resetApplied: false}
	rm := &fakeRepoManager{u: repo}
	s := NewAccountService(db, rm, testPolicy(), testConfig())

	_, err := s.Login(context.Background(), LoginInput{Username: "alice", Password: "Sup3rSecret!"})
	if !errors.Is(err, common.ErrorAccountLocked) {
		t.Fatalf("want ErrorAccountLocked, got %v", err)
	}
}

func TestLogin_MissingFields(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	rm := &fakeRepoManager{u: &fakeUsersRepo{}}
	s := NewAccountService(db, rm, testPolicy(), testConfig())

	_, err := s.Login(context.Background(), LoginInput{})
	if !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("want ErrorValidation, got %v", err)
	}
}

func TestUnlock_Flows(t *testing.T) {
	db, _ := newSQLMockDB(t)
	defer db.Close()

	sOK := NewAccountService(db, &fakeRepoManager{u: &fakeUsersRepo{unlockOK: true}}, testPolicy(), testConfig())
	if err := sOK.Unlock(context.Background(), "alice"); err != nil {
		t.Fatalf("Unlock ok: %v", err)
	}

	sNF := NewAccountService(db, &fakeRepoManager{u: &fakeUsersRepo{unlockOK: false}}, testPolicy(), testConfig())
	if err := sNF.Unlock(context.Background(), "ghost"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound, got %v", err)
	}

	sErr := NewAccountService(db, &fakeRepoManager{u: &fakeUsersRepo{unlockErr: errBoom{}}}, testPolicy(), testConfig())
	if err := sErr.Unlock(context.Background(), "alice"); !errors.Is(err, common.ErrorStorage) {
		t.Fatalf("want ErrorStorage, got %v", err)
	}

	if err := sOK.Unlock(context.Background(), ""); !errors.Is(err, common.ErrorValidation) {
		t.Fatalf("want ErrorValidation, got %v", err)
	}
}
