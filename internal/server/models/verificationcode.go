package models

import "time"

// VerificationCode is a time-boxed single-use code tied to a user. Rows are
// created by issuance, marked used exactly once by confirmation, and never
// deleted. Only the most recently issued code per user (by CreatedAt, with
// the serial ID as tie-break) is eligible for confirmation.
type VerificationCode struct {
	ID             int64
	UserID         string
	Code           string
	CreatedAt      time.Time
	ExpirationTime time.Time
	IsUsed         bool
	VerifiedAt     *time.Time
}
