package models

import "time"

// PasswordHistoryEntry is one row of the append-only password ledger.
// Entries are never updated or deleted; "last N" queries order by
// CreatedAt descending. One entry is written at registration and at
// every successful change or reset.
type PasswordHistoryEntry struct {
	ID           string
	UserID       string
	PasswordHash string
	Salt         string
	CreatedAt    time.Time
}
