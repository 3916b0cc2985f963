package service

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/grachmannico95/bankline/internal/apiclient"
	"github.com/grachmannico95/bankline/internal/cache"
	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/pkg/logger"
)

type TransactionService interface {
	List(ctx context.Context, token string, filter domain.TransactionFilter) (*domain.Page[domain.Transaction], error)
	Transfer(ctx context.Context, token string, req domain.TransferRequest, intent *apiclient.Intent) (*domain.Transaction, error)
}

type transactionService struct {
	base
}

func NewTransactionService(client *apiclient.Client, log *logger.Logger) TransactionService {
	return &transactionService{base: newBase(client, log)}
}

// List always goes to the network: the history changes with every transfer.
func (s *transactionService) List(ctx context.Context, token string, filter domain.TransactionFilter) (*domain.Page[domain.Transaction], error) {
	query := url.Values{}
	if filter.Page > 0 {
		query.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.PerPage > 0 {
		query.Set("perPage", strconv.Itoa(filter.PerPage))
	}
	query.Set("type", string(filter.Type))
	query.Set("status", string(filter.Status))

	var page domain.Page[domain.Transaction]
	if err := s.client.Get(ctx, apiclient.Request{
		Path:    "/api/transaction/history",
		Token:   token,
		Query:   query,
		NoCache: true,
	}, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *transactionService) Transfer(ctx context.Context, token string, req domain.TransferRequest, intent *apiclient.Intent) (*domain.Transaction, error) {
	var tx domain.Transaction
	_, err := s.client.DoJSON(ctx, mutation(http.MethodPost, "/api/transaction/transfer", token, req, intent), &tx)
	err = s.settle(ctx, "transfer", err,
		cache.DomainAccount,
		cache.DomainTransaction,
		cache.DomainAnalytics,
		cache.DomainNotification,
	)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "Transfer submitted",
		"to_account", req.ToAccount,
		"amount", req.Amount.String(),
	)
	return &tx, nil
}
