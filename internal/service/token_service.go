package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/platform"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/pkg/utils"
)

// TokenService guarantees a publish call never goes out with an expired
// credential when a refresh path exists. Refresh failures are fatal for the
// platform attempt and are never retried.
type TokenService interface {
	EnsureFresh(ctx context.Context, pageID int64, conn *models.PlatformConnection, refresher platform.TokenRefresher) error
	Refresh(ctx context.Context, pageID int64, conn *models.PlatformConnection, refresher platform.TokenRefresher) error
}

type tokenService struct {
	cr        repository.ConnectionRepository
	secretKey string
	now       func() time.Time
}

func NewTokenService(cr repository.ConnectionRepository, secretKey string) TokenService {
	return &tokenService{cr: cr, secretKey: secretKey, now: time.Now}
}

// EnsureFresh checks the connection's expiry and, when past, refreshes the
// token through the adapter's refresh capability. New credentials are merged
// into the in-memory connection and persisted to the matching
// (page_id, platform) row before the caller proceeds to publish.
func (s *tokenService) EnsureFresh(ctx context.Context, pageID int64, conn *models.PlatformConnection, refresher platform.TokenRefresher) error {
	if !conn.TokenExpired(s.now()) {
		return nil
	}

	if refresher == nil {
		return fmt.Errorf("%s token expired and refresh failed: no refresh capability", conn.Platform)
	}

	return s.Refresh(ctx, pageID, conn, refresher)
}

// Refresh unconditionally rotates the connection's credential. The proactive
// refresh job uses it directly for tokens that are close to expiry but not
// past it yet.
func (s *tokenService) Refresh(ctx context.Context, pageID int64, conn *models.PlatformConnection, refresher platform.TokenRefresher) error {
	refreshed, err := refresher.RefreshToken(ctx, conn)
	if err != nil {
		slog.Info(err.Error())
		return fmt.Errorf("%s token expired and refresh failed: %v", conn.Platform, err)
	}

	conn.AccessToken = refreshed.AccessToken
	if refreshed.RefreshToken != "" {
		conn.RefreshToken = refreshed.RefreshToken
	}
	conn.TokenExpiresAt = sql.NullTime{Time: refreshed.ExpiresAt, Valid: !refreshed.ExpiresAt.IsZero()}

	accessToken, refreshToken, err := s.sealTokens(refreshed.AccessToken, conn.RefreshToken)
	if err != nil {
		return fmt.Errorf("%s token expired and refresh failed: %v", conn.Platform, err)
	}

	err = s.cr.UpdateToken(ctx, pageID, conn.Platform, accessToken, refreshToken, refreshed.ExpiresAt)
	if err != nil {
		return fmt.Errorf("%s token expired and refresh failed: %v", conn.Platform, err)
	}

	return nil
}

// sealTokens encrypts credentials for storage. Deployments without a secret
// key store them as-is.
func (s *tokenService) sealTokens(accessToken, refreshToken string) (string, string, error) {
	if s.secretKey == "" {
		return accessToken, refreshToken, nil
	}

	sealedAccess, err := utils.Encrypt([]byte(accessToken), []byte(s.secretKey))
	if err != nil {
		return "", "", err
	}
	sealedRefresh := ""
	if refreshToken != "" {
		sealedRefresh, err = utils.Encrypt([]byte(refreshToken), []byte(s.secretKey))
		if err != nil {
			return "", "", err
		}
	}
	return sealedAccess, sealedRefresh, nil
}
