package repomanager

import (
	"context"
	"database/sql"

	"github.com/commltd/authcore/internal/dbx"
	"github.com/commltd/authcore/internal/server/repositories/passwordhistory"
	"github.com/commltd/authcore/internal/server/repositories/users"
	"github.com/commltd/authcore/internal/server/repositories/verificationcodes"
)

// RepositoryManager vends repository implementations bound to a DBTX, so
// services can run the same repository code against the pooled handle or
// inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	PasswordHistory(db dbx.DBTX) passwordhistory.Repository
	VerificationCodes(db dbx.DBTX) verificationcodes.Repository
}
