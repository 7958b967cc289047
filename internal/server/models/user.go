package models

import "time"

// User is the account record owned by the credential subsystem. UserID is
// immutable and derived from a hash of the registration inputs.
// FailedLoginCount is mutated only by the login path (increment/reset) and
// PasswordHash/Salt only by the credential change workflow.
type User struct {
	UserID           string
	Username         string
	Email            string
	FirstName        string
	LastName         string
	PasswordHash     string
	Salt             string
	FailedLoginCount int
	CreatedAt        time.Time
}
