package service

import (
	"context"
	"testing"

	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/pkg/utils"
)

type fakePageRepo struct {
	owned map[int64]int64 // pageID -> userID
}

func (f *fakePageRepo) Create(ctx context.Context, page *models.Page) (int64, error) {
	return 1, nil
}

func (f *fakePageRepo) GetByID(ctx context.Context, id int64) (*models.Page, error) {
	return nil, nil
}

func (f *fakePageRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.Page, error) {
	return nil, nil
}

func (f *fakePageRepo) CheckByUserID(ctx context.Context, pageID, userID int64) (bool, error) {
	return f.owned[pageID] == userID, nil
}

func (f *fakePageRepo) Remove(ctx context.Context, id int64) error {
	return nil
}

func TestConnectPlatform_SealsTokensBeforeStore(t *testing.T) {
	key := "0123456789abcdef0123456789abcdef"
	cr := &fakeConnRepo{}
	s := NewPageService(&fakePageRepo{owned: map[int64]int64{7: 1}}, cr, key)

	_, err := s.ConnectPlatform(context.Background(), 1, &models.PlatformConnection{
		PageID:       7,
		Platform:     "linkedin",
		AccessToken:  "plain-access",
		RefreshToken: "plain-refresh",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cr.created == nil {
		t.Fatal("connection was not stored")
	}
	if !cr.created.IsActive {
		t.Error("stored connection should be active")
	}
	if cr.created.AccessToken == "plain-access" {
		t.Error("access token stored unsealed")
	}
	if got, err := utils.Decrypt(cr.created.AccessToken, []byte(key)); err != nil || got != "plain-access" {
		t.Errorf("sealed access token does not round-trip: %q, %v", got, err)
	}
	if got, err := utils.Decrypt(cr.created.RefreshToken, []byte(key)); err != nil || got != "plain-refresh" {
		t.Errorf("sealed refresh token does not round-trip: %q, %v", got, err)
	}
}

func TestConnectPlatform_RejectsForeignPage(t *testing.T) {
	cr := &fakeConnRepo{}
	s := NewPageService(&fakePageRepo{owned: map[int64]int64{7: 2}}, cr, "")

	_, err := s.ConnectPlatform(context.Background(), 1, &models.PlatformConnection{
		PageID:      7,
		Platform:    "linkedin",
		AccessToken: "tok",
	})
	if err == nil {
		t.Fatal("connecting another user's page should fail")
	}
	if cr.created != nil {
		t.Error("nothing should be stored on an ownership failure")
	}
}

func TestConnectPlatform_RequiresCredentials(t *testing.T) {
	s := NewPageService(&fakePageRepo{owned: map[int64]int64{7: 1}}, &fakeConnRepo{}, "")

	_, err := s.ConnectPlatform(context.Background(), 1, &models.PlatformConnection{
		PageID:   7,
		Platform: "linkedin",
	})
	if err == nil {
		t.Fatal("missing access token should fail")
	}
}
