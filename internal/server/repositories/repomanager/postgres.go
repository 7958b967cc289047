// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/commltd/authcore/internal/dbx"
	"github.com/commltd/authcore/internal/server/migrations"
	"github.com/commltd/authcore/internal/server/repositories/passwordhistory"
	"github.com/commltd/authcore/internal/server/repositories/users"
	"github.com/commltd/authcore/internal/server/repositories/verificationcodes"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository
// implementations and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

// PasswordHistory returns a passwordhistory.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) PasswordHistory(db dbx.DBTX) passwordhistory.Repository {
	return passwordhistory.NewPostgresRepository(db)
}

// VerificationCodes returns a verificationcodes.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) VerificationCodes(db dbx.DBTX) verificationcodes.Repository {
	return verificationcodes.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, ".")
}
