package service

import (
	"context"
	"net/url"
	"strconv"

	"github.com/grachmannico95/bankline/internal/apiclient"
	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/pkg/logger"
)

type AdminService interface {
	Users(ctx context.Context, token string) ([]domain.Account, error)
	Stats(ctx context.Context, token string) (*domain.AdminStats, error)
	Analytics(ctx context.Context, token string) (*domain.AnalyticsOverview, error)
}

type adminService struct {
	base
}

func NewAdminService(client *apiclient.Client, log *logger.Logger) AdminService {
	return &adminService{base: newBase(client, log)}
}

func (s *adminService) Users(ctx context.Context, token string) ([]domain.Account, error) {
	var users []domain.Account
	if err := s.client.Get(ctx, apiclient.Request{Path: "/api/admin/users", Token: token}, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *adminService) Stats(ctx context.Context, token string) (*domain.AdminStats, error) {
	var stats domain.AdminStats
	if err := s.client.Get(ctx, apiclient.Request{Path: "/api/admin/stats", Token: token}, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (s *adminService) Analytics(ctx context.Context, token string) (*domain.AnalyticsOverview, error) {
	var overview domain.AnalyticsOverview
	if err := s.client.Get(ctx, apiclient.Request{Path: "/api/analytics/overview", Token: token}, &overview); err != nil {
		return nil, err
	}
	return &overview, nil
}

type AuditService interface {
	Logs(ctx context.Context, token string, filter domain.AuditFilter) (*domain.Page[domain.AuditLog], error)
}

type auditService struct {
	base
}

func NewAuditService(client *apiclient.Client, log *logger.Logger) AuditService {
	return &auditService{base: newBase(client, log)}
}

func (s *auditService) Logs(ctx context.Context, token string, filter domain.AuditFilter) (*domain.Page[domain.AuditLog], error) {
	query := url.Values{
		"actor":  {filter.Actor},
		"action": {filter.Action},
	}
	if filter.Page > 0 {
		query.Set("page", strconv.Itoa(filter.Page))
	}

	var page domain.Page[domain.AuditLog]
	if err := s.client.Get(ctx, apiclient.Request{
		Path:  "/api/audit/logs",
		Token: token,
		Query: query,
	}, &page); err != nil {
		return nil, err
	}
	return &page, nil
}
