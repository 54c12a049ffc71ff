package models

import "time"

type User struct {
	ID        int64     `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	// Legacy single-platform credential, predates pages and the
	// per-page connection table. Only the legacy publish path reads it.
	LinkedinID          string `db:"linkedin_id" json:"-"`
	LinkedinAccessToken string `db:"linkedin_access_token" json:"-"`
}
