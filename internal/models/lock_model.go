package models

import "time"

// JobLock is a persisted mutual-exclusion record. A lock whose expiry has
// passed is free regardless of whether the holder released it.
type JobLock struct {
	Name      string    `db:"name" json:"name"`
	Owner     string    `db:"owner" json:"owner"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}
