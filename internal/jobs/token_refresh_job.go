package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/postpilothq/postpilot/internal/platform"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/internal/service"
)

// TokenRefreshJob proactively refreshes connections whose tokens expire
// soon, so most publish runs never pay the refresh round-trip in-flight. The
// orchestrator's own expiry check remains the safety net.
type TokenRefreshJob struct {
	cr        repository.ConnectionRepository
	registry  *platform.Registry
	tokens    service.TokenService
	secretKey string
}

func NewTokenRefreshJob(cr repository.ConnectionRepository, registry *platform.Registry, tokens service.TokenService, secretKey string) *TokenRefreshJob {
	return &TokenRefreshJob{cr: cr, registry: registry, tokens: tokens, secretKey: secretKey}
}

func (c *TokenRefreshJob) RefreshTokens() {
	ctx := context.Background()

	deadline := time.Now().Add(30 * time.Minute)
	conns, err := c.cr.ListExpiringBefore(ctx, deadline)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	for _, conn := range conns {
		adapter, ok := c.registry.Get(conn.Platform)
		if !ok {
			continue
		}
		refresher, ok := adapter.(platform.TokenRefresher)
		if !ok {
			continue
		}

		openTokens(conn, c.secretKey)
		if err := c.tokens.Refresh(ctx, conn.PageID, conn, refresher); err != nil {
			slog.Info("proactive token refresh failed", "platform", conn.Platform, "page_id", conn.PageID, "error", err.Error())
		}
	}
}
