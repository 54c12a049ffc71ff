package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
)

type ConnectionRepository interface {
	Create(ctx context.Context, tx *sql.Tx, conn *models.PlatformConnection) (int64, error)
	ListByPageID(ctx context.Context, pageID int64) ([]*models.PlatformConnection, error)
	ListExpiringBefore(ctx context.Context, deadline time.Time) ([]*models.PlatformConnection, error)
	UpdateToken(ctx context.Context, pageID int64, platform, accessToken, refreshToken string, expiresAt time.Time) error
	Remove(ctx context.Context, pageID int64, platform string) error
}

type connectionRepository struct {
	db *sql.DB
}

func NewConnectionRepository(db *sql.DB) ConnectionRepository {
	return &connectionRepository{db: db}
}

const connectionColumns = `id, page_id, platform, account_id, account_name,
	access_token, COALESCE(refresh_token, ''), token_expires_at, is_active, created_at, updated_at`

func (r *connectionRepository) Create(ctx context.Context, tx *sql.Tx, conn *models.PlatformConnection) (int64, error) {
	query := `
		INSERT INTO platform_connections (page_id, platform, account_id, account_name, access_token, refresh_token, token_expires_at, is_active)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
		ON CONFLICT (page_id, platform) DO UPDATE
		SET account_id = EXCLUDED.account_id,
			account_name = EXCLUDED.account_name,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expires_at = EXCLUDED.token_expires_at,
			is_active = EXCLUDED.is_active,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	args := []any{
		conn.PageID, conn.Platform, conn.AccountID, conn.AccountName,
		conn.AccessToken, conn.RefreshToken, conn.TokenExpiresAt, conn.IsActive,
	}

	var id int64
	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

func (r *connectionRepository) ListByPageID(ctx context.Context, pageID int64) ([]*models.PlatformConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM platform_connections WHERE page_id = $1 ORDER BY platform`
	return r.list(ctx, query, pageID)
}

// ListExpiringBefore returns active connections whose token expiry falls
// before the deadline, including already-expired ones. Feeds the proactive
// refresh job.
func (r *connectionRepository) ListExpiringBefore(ctx context.Context, deadline time.Time) ([]*models.PlatformConnection, error) {
	query := `SELECT ` + connectionColumns + ` FROM platform_connections
		WHERE is_active AND token_expires_at IS NOT NULL AND token_expires_at <= $1`
	return r.list(ctx, query, deadline)
}

func (r *connectionRepository) list(ctx context.Context, query string, args ...any) ([]*models.PlatformConnection, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var conns []*models.PlatformConnection
	for rows.Next() {
		var conn models.PlatformConnection
		err := rows.Scan(&conn.ID, &conn.PageID, &conn.Platform, &conn.AccountID,
			&conn.AccountName, &conn.AccessToken, &conn.RefreshToken,
			&conn.TokenExpiresAt, &conn.IsActive, &conn.CreatedAt, &conn.UpdatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		conns = append(conns, &conn)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return conns, nil
}

// UpdateToken persists refreshed credentials scoped to the single
// (page_id, platform) row. The scoping matters: a publish run and a dashboard
// edit can touch different platforms of the same page concurrently, and
// neither may clobber the other.
func (r *connectionRepository) UpdateToken(ctx context.Context, pageID int64, platform, accessToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE platform_connections
		SET access_token = COALESCE(NULLIF($3, ''), access_token),
			refresh_token = COALESCE(NULLIF($4, ''), refresh_token),
			token_expires_at = $5,
			updated_at = CURRENT_TIMESTAMP
		WHERE page_id = $1 AND platform = $2
	`
	result, err := r.db.ExecContext(ctx, query, pageID, platform, accessToken, refreshToken, expiresAt)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		slog.Info("no connection row matched page and platform")
		return errors.New("no connection row matched page and platform")
	}
	return nil
}

func (r *connectionRepository) Remove(ctx context.Context, pageID int64, platform string) error {
	query := `DELETE FROM platform_connections WHERE page_id = $1 AND platform = $2`
	_, err := r.db.ExecContext(ctx, query, pageID, platform)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
