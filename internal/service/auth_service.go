package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	config "github.com/postpilothq/postpilot/configs"
	"github.com/postpilothq/postpilot/internal/models"
	"github.com/postpilothq/postpilot/internal/repository"
	"github.com/postpilothq/postpilot/pkg/utils"
)

const sessionDuration = 7 * 24 * time.Hour

type AuthService interface {
	LoginOrRegister(ctx context.Context, email, name string) (string, error)
}

type authService struct {
	cfg config.Config
	ur  repository.UserRepository
}

func NewAuthService(cfg config.Config, ur repository.UserRepository) AuthService {
	return &authService{cfg: cfg, ur: ur}
}

// LoginOrRegister resolves the user by email, creating one on first login,
// and returns a signed session token.
func (s *authService) LoginOrRegister(ctx context.Context, email, name string) (string, error) {
	if email == "" {
		return "", errors.New("email is required")
	}

	user, err := s.ur.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}

	var userID int64
	if user != nil {
		userID = user.ID
	} else {
		userID, err = s.ur.Create(ctx, &models.User{Email: email, Name: name})
		if err != nil {
			return "", err
		}
	}

	return utils.GenerateToken(s.cfg.SecretKey, fmt.Sprintf("%d", userID), sessionDuration)
}
