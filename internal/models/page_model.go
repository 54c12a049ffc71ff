package models

import (
	"database/sql"
	"time"
)

// Page is a user's publishing identity: a LinkedIn profile or organization,
// or a manually created brand. Connections hang off the page, one per
// platform.
type Page struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	Platform  string    `db:"platform" json:"platform"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type PlatformConnection struct {
	ID             int64        `db:"id" json:"id"`
	PageID         int64        `db:"page_id" json:"page_id"`
	Platform       string       `db:"platform" json:"platform"`
	AccountID      string       `db:"account_id" json:"account_id"`
	AccountName    string       `db:"account_name" json:"account_name"`
	AccessToken    string       `db:"access_token" json:"-"`
	RefreshToken   string       `db:"refresh_token" json:"-"`
	TokenExpiresAt sql.NullTime `db:"token_expires_at" json:"token_expires_at"`
	IsActive       bool         `db:"is_active" json:"is_active"`
	CreatedAt      time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updated_at"`
}

// TokenExpired reports whether the connection's access token has a known
// expiry in the past. Connections without an expiry never report expired.
func (c *PlatformConnection) TokenExpired(now time.Time) bool {
	return c.TokenExpiresAt.Valid && c.TokenExpiresAt.Time.Before(now)
}
