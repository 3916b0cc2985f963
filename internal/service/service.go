// Package service wraps one backend operation per method. Mutations invalidate
// the cache domains they can stale.
package service

import (
	"context"
	"net/http"

	"github.com/grachmannico95/bankline/internal/apiclient"
	"github.com/grachmannico95/bankline/internal/cache"
	"github.com/grachmannico95/bankline/pkg/logger"
)

// Set bundles every service around one client.
type Set struct {
	Auth          AuthService
	Accounts      AccountService
	Transactions  TransactionService
	Deposits      DepositService
	Loans         LoanService
	Cards         CardService
	Notifications NotificationService
	Support       SupportService
	Admin         AdminService
	Audit         AuditService
}

func NewSet(client *apiclient.Client, log *logger.Logger) *Set {
	return &Set{
		Auth:          NewAuthService(client, log),
		Accounts:      NewAccountService(client, log),
		Transactions:  NewTransactionService(client, log),
		Deposits:      NewDepositService(client, log),
		Loans:         NewLoanService(client, log),
		Cards:         NewCardService(client, log),
		Notifications: NewNotificationService(client, log),
		Support:       NewSupportService(client, log),
		Admin:         NewAdminService(client, log),
		Audit:         NewAuditService(client, log),
	}
}

type base struct {
	client *apiclient.Client
	logger *logger.Logger
}

func newBase(client *apiclient.Client, log *logger.Logger) base {
	if log == nil {
		log = logger.NewNop()
	}
	return base{client: client, logger: log}
}

// settle invalidates domains after a mutation that may have reached the
// backend. Only a 4xx rejection leaves the cache alone.
func (b base) settle(ctx context.Context, op string, err error, domains ...cache.Domain) error {
	if mayHaveApplied(err) {
		b.client.Invalidate(ctx, domains...)
	}
	if err != nil {
		b.logger.Warn(ctx, "Operation failed",
			"operation", op,
			"kind", apiclient.KindOf(err).String(),
			"status", apiclient.StatusOf(err),
			"error_code", apiclient.ErrorCodeOf(err),
			"error", err,
		)
	}
	return err
}

// mayHaveApplied reports whether the backend could have committed a mutation
// that ended with err: success, a lost connection, an undecodable 2xx body or
// a 5xx.
func mayHaveApplied(err error) bool {
	switch apiclient.KindOf(err) {
	case apiclient.KindNetwork, apiclient.KindParse:
		return true
	case apiclient.KindHTTP:
		return apiclient.StatusOf(err) >= http.StatusInternalServerError
	}
	return err == nil
}

// mutation builds an idempotent request for intent, or a fresh key when nil.
func mutation(method, path, token string, body any, intent *apiclient.Intent) apiclient.Request {
	return apiclient.Request{
		Method:     method,
		Path:       path,
		Token:      token,
		Body:       body,
		Idempotent: true,
		Intent:     intent,
	}
}
