package service

import (
	"context"
	"errors"

	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
)

type UserService interface {
	GetUserInfo(ctx context.Context, userID int64) (*models.User, error)
}

type userService struct {
	ur repository.UserRepository
}

func NewUserService(ur repository.UserRepository) UserService {
	return &userService{ur: ur}
}

func (s *userService) GetUserInfo(ctx context.Context, userID int64) (*models.User, error) {
	user, err := s.ur.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}
	return user, nil
}
