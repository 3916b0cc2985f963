package service

import (
	"context"
	"fmt"
	"net/http"

	"github.com/grachmannico95/bankline/internal/apiclient"
	"github.com/grachmannico95/bankline/internal/cache"
	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/pkg/logger"
)

type AuthService interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.User, error)
	Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error)
}

type authService struct {
	base
}

func NewAuthService(client *apiclient.Client, log *logger.Logger) AuthService {
	return &authService{base: newBase(client, log)}
}

func (s *authService) Login(ctx context.Context, req domain.LoginRequest) (*domain.User, error) {
	var user domain.User
	err := s.client.Post(ctx, apiclient.Request{
		Path: "/api/auth/login",
		Body: req,
	}, &user)
	if err != nil {
		return nil, classifyAuth(err)
	}

	s.logger.Info(ctx, "Signed in", "email", user.Email, "role", string(user.Role))
	return &user, nil
}

func (s *authService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	var user domain.User
	err := s.client.Post(ctx, apiclient.Request{
		Path: "/api/auth/register",
		Body: req,
	}, &user)
	if err = s.settle(ctx, "register", err, cache.DomainAdmin); err != nil {
		return nil, classifyAuth(err)
	}
	return &user, nil
}

// classifyAuth maps backend error codes onto domain sentinels, keeping the
// original error in the chain.
func classifyAuth(err error) error {
	switch apiclient.ErrorCodeOf(err) {
	case domain.CodeDuplicateEmail:
		return fmt.Errorf("%w: %w", domain.ErrDuplicateEmail, err)
	case domain.CodeInvalidAdminCode:
		return fmt.Errorf("%w: %w", domain.ErrInvalidAdminCode, err)
	case domain.CodeInvalidCredentials:
		return fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, err)
	}
	if apiclient.StatusOf(err) == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, err)
	}
	return err
}
