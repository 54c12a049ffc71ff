package service

import (
	"context"
	"errors"

	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/pkg/utils"
)

type PageService interface {
	CreatePage(ctx context.Context, userID int64, name, platform string) (int64, error)
	List(ctx context.Context, userID int64) ([]*models.Page, error)
	ConnectPlatform(ctx context.Context, userID int64, conn *models.PlatformConnection) (int64, error)
	ListConnections(ctx context.Context, userID, pageID int64) ([]*models.PlatformConnection, error)
	RemoveConnection(ctx context.Context, userID, pageID int64, platform string) error
	Remove(ctx context.Context, userID, pageID int64) error
}

type pageService struct {
	pr        repository.PageRepository
	cr        repository.ConnectionRepository
	secretKey string
}

func NewPageService(pr repository.PageRepository, cr repository.ConnectionRepository, secretKey string) PageService {
	return &pageService{pr: pr, cr: cr, secretKey: secretKey}
}

func (s *pageService) CreatePage(ctx context.Context, userID int64, name, platform string) (int64, error) {
	if name == "" {
		return 0, errors.New("page name is required")
	}
	return s.pr.Create(ctx, &models.Page{UserID: userID, Name: name, Platform: platform})
}

func (s *pageService) List(ctx context.Context, userID int64) ([]*models.Page, error) {
	return s.pr.ListByUserID(ctx, userID)
}

// ConnectPlatform stores platform credentials for a page, replacing any
// existing connection for the same platform. Tokens are sealed before they
// reach the database.
func (s *pageService) ConnectPlatform(ctx context.Context, userID int64, conn *models.PlatformConnection) (int64, error) {
	if err := s.checkOwnership(ctx, userID, conn.PageID); err != nil {
		return 0, err
	}
	if conn.Platform == "" || conn.AccessToken == "" {
		return 0, errors.New("platform and access token are required")
	}

	if s.secretKey != "" {
		sealed, err := utils.Encrypt([]byte(conn.AccessToken), []byte(s.secretKey))
		if err != nil {
			return 0, err
		}
		conn.AccessToken = sealed

		if conn.RefreshToken != "" {
			sealed, err := utils.Encrypt([]byte(conn.RefreshToken), []byte(s.secretKey))
			if err != nil {
				return 0, err
			}
			conn.RefreshToken = sealed
		}
	}

	conn.IsActive = true
	return s.cr.Create(ctx, nil, conn)
}

func (s *pageService) ListConnections(ctx context.Context, userID, pageID int64) ([]*models.PlatformConnection, error) {
	if err := s.checkOwnership(ctx, userID, pageID); err != nil {
		return nil, err
	}
	return s.cr.ListByPageID(ctx, pageID)
}

func (s *pageService) RemoveConnection(ctx context.Context, userID, pageID int64, platform string) error {
	if err := s.checkOwnership(ctx, userID, pageID); err != nil {
		return err
	}
	return s.cr.Remove(ctx, pageID, platform)
}

func (s *pageService) Remove(ctx context.Context, userID, pageID int64) error {
	if err := s.checkOwnership(ctx, userID, pageID); err != nil {
		return err
	}
	return s.pr.Remove(ctx, pageID)
}

func (s *pageService) checkOwnership(ctx context.Context, userID, pageID int64) error {
	owned, err := s.pr.CheckByUserID(ctx, pageID, userID)
	if err != nil {
		return err
	}
	if !owned {
		return errors.New("page not found")
	}
	return nil
}
