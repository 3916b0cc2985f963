package service

import (
	"context"
	"net/url"

	"github.com/grachmannico95/bankline/internal/apiclient"
	"github.com/grachmannico95/bankline/internal/cache"
	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/pkg/logger"
)

type NotificationService interface {
	List(ctx context.Context, token string) ([]domain.Notification, error)
	MarkRead(ctx context.Context, token, id string) error
	MarkAllRead(ctx context.Context, token string) error
}

type notificationService struct {
	base
}

func NewNotificationService(client *apiclient.Client, log *logger.Logger) NotificationService {
	return &notificationService{base: newBase(client, log)}
}

func (s *notificationService) List(ctx context.Context, token string) ([]domain.Notification, error) {
	var notifications []domain.Notification
	if err := s.client.Get(ctx, apiclient.Request{Path: "/api/notification", Token: token}, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (s *notificationService) MarkRead(ctx context.Context, token, id string) error {
	err := s.client.Put(ctx, apiclient.Request{
		Path:  "/api/notification/" + url.PathEscape(id) + "/read",
		Token: token,
	}, nil)
	return s.settle(ctx, "notification_read", err, cache.DomainNotification)
}

func (s *notificationService) MarkAllRead(ctx context.Context, token string) error {
	err := s.client.Put(ctx, apiclient.Request{
		Path:  "/api/notification/read-all",
		Token: token,
	}, nil)
	return s.settle(ctx, "notification_read_all", err, cache.DomainNotification)
}
