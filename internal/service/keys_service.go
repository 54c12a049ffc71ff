package service

import (
	"context"
	"errors"

	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/pkg/utils"
)

type ApiKeyService interface {
	CreateApiKey(ctx context.Context, userID int64, name string) (string, error)
	GetUserID(ctx context.Context, apiKey string) (int64, error)
	List(ctx context.Context, userID int64) ([]*models.ApiKey, error)
	Remove(ctx context.Context, userID, keyID int64) error
}

type apiKeyService struct {
	kr repository.ApiKeyRepository
}

func NewApiKeyService(kr repository.ApiKeyRepository) ApiKeyService {
	return &apiKeyService{kr: kr}
}

// CreateApiKey returns the plaintext key once; only its hash is stored.
func (s *apiKeyService) CreateApiKey(ctx context.Context, userID int64, name string) (string, error) {
	key, err := utils.GenerateApiKey()
	if err != nil {
		return "", err
	}

	_, err = s.kr.Create(ctx, &models.ApiKey{
		UserID:  userID,
		Name:    name,
		KeyHash: utils.HashApiKey(key),
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

func (s *apiKeyService) GetUserID(ctx context.Context, apiKey string) (int64, error) {
	userID, err := s.kr.GetUserIDByHash(ctx, utils.HashApiKey(apiKey))
	if err != nil {
		return 0, err
	}
	if userID == 0 {
		return 0, errors.New("invalid api key")
	}
	return userID, nil
}

func (s *apiKeyService) List(ctx context.Context, userID int64) ([]*models.ApiKey, error) {
	return s.kr.ListByUserID(ctx, userID)
}

func (s *apiKeyService) Remove(ctx context.Context, userID, keyID int64) error {
	return s.kr.Remove(ctx, keyID, userID)
}
