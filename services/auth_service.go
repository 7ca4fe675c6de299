package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/carnival-system/models"
	"github.com/Dosada05/carnival-system/repositories"
	"github.com/Dosada05/carnival-system/utils"
)

type AuthService interface {
	Login(ctx context.Context, input LoginInput) (*models.User, error)
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type authService struct {
	userRepo repositories.UserRepository
}

func NewAuthService(userRepo repositories.UserRepository) AuthService {
	return &authService{
		userRepo: userRepo,
	}
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrAuthInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	ok, err := utils.CheckPasswordHash(input.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}
	if !ok {
		return nil, ErrAuthInvalidCredentials
	}
	// Деактивированные аккаунты не отличаем от неверного пароля
	if !user.IsActive {
		return nil, ErrAuthInvalidCredentials
	}

	user.PasswordHash = ""

	return user, nil
}
