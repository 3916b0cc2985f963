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

type LoanService interface {
	Apply(ctx context.Context, token string, app domain.LoanApplication) (*domain.Loan, error)
	List(ctx context.Context, token string) ([]domain.Loan, error)
	EMISchedule(ctx context.Context, token, loanID string) ([]domain.EMIInstallment, error)
	PayEMI(ctx context.Context, token, loanID string, installment int, intent *apiclient.Intent) (*domain.EMIInstallment, error)
}

type loanService struct {
	base
}

func NewLoanService(client *apiclient.Client, log *logger.Logger) LoanService {
	return &loanService{base: newBase(client, log)}
}

func (s *loanService) Apply(ctx context.Context, token string, app domain.LoanApplication) (*domain.Loan, error) {
	var loan domain.Loan
	err := s.client.Post(ctx, apiclient.Request{
		Path:  "/api/loan/apply",
		Token: token,
		Body:  app,
	}, &loan)
	if err = s.settle(ctx, "loan_apply", err, cache.DomainLoan, cache.DomainAdmin); err != nil {
		return nil, err
	}
	return &loan, nil
}

func (s *loanService) List(ctx context.Context, token string) ([]domain.Loan, error) {
	var loans []domain.Loan
	if err := s.client.Get(ctx, apiclient.Request{Path: "/api/loan", Token: token}, &loans); err != nil {
		return nil, err
	}
	return loans, nil
}

// EMISchedule returns the schedule exactly as the backend computed it.
func (s *loanService) EMISchedule(ctx context.Context, token, loanID string) ([]domain.EMIInstallment, error) {
	var schedule []domain.EMIInstallment
	if err := s.client.Get(ctx, apiclient.Request{
		Path:  emiPath(loanID),
		Token: token,
	}, &schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

func (s *loanService) PayEMI(ctx context.Context, token, loanID string, installment int, intent *apiclient.Intent) (*domain.EMIInstallment, error) {
	var paid domain.EMIInstallment
	_, err := s.client.DoJSON(ctx, mutation(http.MethodPost, emiPath(loanID), token, domain.EMIPayment{Installment: installment}, intent), &paid)
	err = s.settle(ctx, "pay_emi", err,
		cache.DomainLoan,
		cache.DomainAccount,
		cache.DomainTransaction,
		cache.DomainAnalytics,
	)
	if err != nil {
		return nil, err
	}
	return &paid, nil
}

func emiPath(loanID string) string {
	return "/api/loan/" + url.PathEscape(loanID) + "/emi"
}
