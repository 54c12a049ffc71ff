package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/platform"
)

type fakeConnRepo struct {
	updates      int
	lastPageID   int64
	lastPlatform string
	lastAccess   string
	updateErr    error
	created      *models.PlatformConnection
}

func (f *fakeConnRepo) Create(ctx context.Context, tx *sql.Tx, conn *models.PlatformConnection) (int64, error) {
	f.created = conn
	return 1, nil
}

func (f *fakeConnRepo) ListByPageID(ctx context.Context, pageID int64) ([]*models.PlatformConnection, error) {
	return nil, nil
}

func (f *fakeConnRepo) ListExpiringBefore(ctx context.Context, deadline time.Time) ([]*models.PlatformConnection, error) {
	return nil, nil
}

func (f *fakeConnRepo) UpdateToken(ctx context.Context, pageID int64, platform, accessToken, refreshToken string, expiresAt time.Time) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates++
	f.lastPageID = pageID
	f.lastPlatform = platform
	f.lastAccess = accessToken
	return nil
}

func (f *fakeConnRepo) Remove(ctx context.Context, pageID int64, platform string) error {
	return nil
}

type fakeRefresher struct {
	calls int
	token *platform.RefreshedToken
	err   error
}

func (f *fakeRefresher) RefreshToken(ctx context.Context, conn *models.PlatformConnection) (*platform.RefreshedToken, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.token, nil
}

func expiredConn(platform string) *models.PlatformConnection {
	return &models.PlatformConnection{
		PageID:         7,
		Platform:       platform,
		AccessToken:    "stale-token",
		RefreshToken:   "refresh-token",
		TokenExpiresAt: sql.NullTime{Time: time.Now().Add(-time.Hour), Valid: true},
		IsActive:       true,
	}
}

func TestEnsureFresh_ValidTokenSkipsRefresh(t *testing.T) {
	repo := &fakeConnRepo{}
	refresher := &fakeRefresher{}
	svc := &tokenService{cr: repo, now: time.Now}

	conn := expiredConn("linkedin")
	conn.TokenExpiresAt = sql.NullTime{Time: time.Now().Add(time.Hour), Valid: true}

	if err := svc.EnsureFresh(context.Background(), 7, conn, refresher); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if refresher.calls != 0 {
		t.Errorf("refresher called %d times, want 0", refresher.calls)
	}
	if repo.updates != 0 {
		t.Errorf("repo updated %d times, want 0", repo.updates)
	}
}

func TestEnsureFresh_NoExpirySkipsRefresh(t *testing.T) {
	svc := &tokenService{cr: &fakeConnRepo{}, now: time.Now}
	conn := expiredConn("linkedin")
	conn.TokenExpiresAt = sql.NullTime{}

	if err := svc.EnsureFresh(context.Background(), 7, conn, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEnsureFresh_RefreshesAndPersists(t *testing.T) {
	repo := &fakeConnRepo{}
	expiry := time.Now().Add(2 * time.Hour)
	refresher := &fakeRefresher{token: &platform.RefreshedToken{
		AccessToken:  "fresh-token",
		RefreshToken: "fresh-refresh",
		ExpiresAt:    expiry,
	}}
	svc := &tokenService{cr: repo, now: time.Now}

	conn := expiredConn("linkedin")
	if err := svc.EnsureFresh(context.Background(), 7, conn, refresher); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if refresher.calls != 1 {
		t.Errorf("refresher called %d times, want 1", refresher.calls)
	}
	if repo.updates != 1 {
		t.Errorf("repo updated %d times, want 1", repo.updates)
	}
	if repo.lastPageID != 7 || repo.lastPlatform != "linkedin" {
		t.Errorf("update scoped to (%d, %s), want (7, linkedin)", repo.lastPageID, repo.lastPlatform)
	}
	if conn.AccessToken != "fresh-token" {
		t.Errorf("in-memory access token = %q, want fresh-token", conn.AccessToken)
	}
	if conn.RefreshToken != "fresh-refresh" {
		t.Errorf("in-memory refresh token = %q, want fresh-refresh", conn.RefreshToken)
	}
	if !conn.TokenExpiresAt.Valid || !conn.TokenExpiresAt.Time.Equal(expiry) {
		t.Errorf("in-memory expiry = %v, want %v", conn.TokenExpiresAt, expiry)
	}
}

func TestEnsureFresh_SecondCallSeesFreshToken(t *testing.T) {
	repo := &fakeConnRepo{}
	refresher := &fakeRefresher{token: &platform.RefreshedToken{
		AccessToken: "fresh-token",
		ExpiresAt:   time.Now().Add(2 * time.Hour),
	}}
	svc := &tokenService{cr: repo, now: time.Now}

	conn := expiredConn("linkedin")
	if err := svc.EnsureFresh(context.Background(), 7, conn, refresher); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := svc.EnsureFresh(context.Background(), 7, conn, refresher); err != nil {
		t.Fatalf("second call: %v", err)
	}

	if refresher.calls != 1 {
		t.Errorf("refresher called %d times across two checks, want 1", refresher.calls)
	}
	if repo.updates != 1 {
		t.Errorf("repo updated %d times across two checks, want 1", repo.updates)
	}
}

func TestEnsureFresh_NoCapabilityFailsFast(t *testing.T) {
	svc := &tokenService{cr: &fakeConnRepo{}, now: time.Now}

	err := svc.EnsureFresh(context.Background(), 7, expiredConn("facebook"), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "facebook token expired and refresh failed") {
		t.Errorf("error = %q, want token-expired message", err.Error())
	}
}

func TestEnsureFresh_RefreshErrorIsFatal(t *testing.T) {
	repo := &fakeConnRepo{}
	refresher := &fakeRefresher{err: errors.New("revoked")}
	svc := &tokenService{cr: repo, now: time.Now}

	err := svc.EnsureFresh(context.Background(), 7, expiredConn("twitter"), refresher)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "twitter token expired and refresh failed") {
		t.Errorf("error = %q, want token-expired message", err.Error())
	}
	if repo.updates != 0 {
		t.Errorf("repo updated %d times after failed refresh, want 0", repo.updates)
	}
}

func TestEnsureFresh_PersistFailureIsFatal(t *testing.T) {
	repo := &fakeConnRepo{updateErr: errors.New("db down")}
	refresher := &fakeRefresher{token: &platform.RefreshedToken{
		AccessToken: "fresh-token",
		ExpiresAt:   time.Now().Add(time.Hour),
	}}
	svc := &tokenService{cr: repo, now: time.Now}

	err := svc.EnsureFresh(context.Background(), 7, expiredConn("linkedin"), refresher)
	if err == nil {
		t.Fatal("expected error when persistence fails")
	}
}
