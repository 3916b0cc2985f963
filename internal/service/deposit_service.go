package service

import (
	"context"
	"net/http"
	"net/url"

	"github.com/grachmannico95/bankline/internal/apiclient"
	"github.com/grachmannico95/bankline/internal/cache"
	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/pkg/logger"
)

type DepositService interface {
	Request(ctx context.Context, token string, req domain.DepositCreate, intent *apiclient.Intent) (*domain.DepositRequest, error)
	List(ctx context.Context, token string, status domain.DepositStatus) ([]domain.DepositRequest, error)
	Action(ctx context.Context, token string, decision domain.DepositDecision, intent *apiclient.Intent) (*domain.DepositRequest, error)
}

type depositService struct {
	base
}

func NewDepositService(client *apiclient.Client, log *logger.Logger) DepositService {
	return &depositService{base: newBase(client, log)}
}

func (s *depositService) Request(ctx context.Context, token string, req domain.DepositCreate, intent *apiclient.Intent) (*domain.DepositRequest, error) {
	var deposit domain.DepositRequest
	_, err := s.client.DoJSON(ctx, mutation(http.MethodPost, "/api/deposit/request", token, req, intent), &deposit)
	if err = s.settle(ctx, "deposit_request", err, cache.DomainDeposit, cache.DomainAdmin); err != nil {
		return nil, err
	}
	return &deposit, nil
}

// List bypasses the cache; the request table is reviewed live.
func (s *depositService) List(ctx context.Context, token string, status domain.DepositStatus) ([]domain.DepositRequest, error) {
	var deposits []domain.DepositRequest
	if err := s.client.Get(ctx, apiclient.Request{
		Path:    "/api/deposit/requests",
		Token:   token,
		Query:   url.Values{"status": {string(status)}},
		NoCache: true,
	}, &deposits); err != nil {
		return nil, err
	}
	return deposits, nil
}

func (s *depositService) Action(ctx context.Context, token string, decision domain.DepositDecision, intent *apiclient.Intent) (*domain.DepositRequest, error) {
	var deposit domain.DepositRequest
	_, err := s.client.DoJSON(ctx, mutation(http.MethodPost, "/api/deposit/action", token, decision, intent), &deposit)
	err = s.settle(ctx, "deposit_action", err,
		cache.DomainAccount,
		cache.DomainTransaction,
		cache.DomainAnalytics,
		cache.DomainDeposit,
		cache.DomainAdmin,
	)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Deposit request decided",
		"deposit_request_id", decision.DepositRequestID,
		"action", string(decision.Action),
	)
	return &deposit, nil
}
