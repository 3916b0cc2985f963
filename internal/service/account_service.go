package service

import (
	"context"
	"net/url"

	"github.com/grachmannico95/bankline/internal/apiclient"
	"github.com/grachmannico95/bankline/internal/cache"
	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/pkg/logger"
)

type AccountService interface {
	Get(ctx context.Context, token string) (*domain.Account, error)
	UpdateProfile(ctx context.Context, token string, profile domain.Profile) (*domain.Account, error)
	UpdateStatus(ctx context.Context, token, accountID string, status domain.AccountStatus) (*domain.Account, error)
}

type accountService struct {
	base
}

func NewAccountService(client *apiclient.Client, log *logger.Logger) AccountService {
	return &accountService{base: newBase(client, log)}
}

func (s *accountService) Get(ctx context.Context, token string) (*domain.Account, error) {
	var account domain.Account
	if err := s.client.Get(ctx, apiclient.Request{Path: "/api/account/me", Token: token}, &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *accountService) UpdateProfile(ctx context.Context, token string, profile domain.Profile) (*domain.Account, error) {
	var account domain.Account
	err := s.client.Put(ctx, apiclient.Request{
		Path:  "/api/account/profile",
		Token: token,
		Body:  profile,
	}, &account)
	if err = s.settle(ctx, "update_profile", err, cache.DomainAccount, cache.DomainAdmin); err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *accountService) UpdateStatus(ctx context.Context, token, accountID string, status domain.AccountStatus) (*domain.Account, error) {
	var account domain.Account
	err := s.client.Put(ctx, apiclient.Request{
		Path:  "/api/account/" + url.PathEscape(accountID) + "/status",
		Token: token,
		Body:  domain.AccountStatusUpdate{Status: status},
	}, &account)
	if err = s.settle(ctx, "update_account_status", err, cache.DomainAccount, cache.DomainAdmin, cache.DomainAnalytics); err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Account status changed",
		"account_id", accountID,
		"status", string(status),
	)
	return &account, nil
}
