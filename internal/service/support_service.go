package service

import (
	"context"
	"net/url"

	"github.com/grachmannico95/bankline/internal/apiclient"
	"github.com/grachmannico95/bankline/internal/cache"
	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/pkg/logger"
)

type SupportService interface {
	CreateTicket(ctx context.Context, token string, req domain.TicketCreate) (*domain.SupportTicket, error)
	ListTickets(ctx context.Context, token string) ([]domain.SupportTicket, error)
	Reply(ctx context.Context, token, ticketID, message string) (*domain.SupportTicket, error)
}

type supportService struct {
	base
}

func NewSupportService(client *apiclient.Client, log *logger.Logger) SupportService {
	return &supportService{base: newBase(client, log)}
}

func (s *supportService) CreateTicket(ctx context.Context, token string, req domain.TicketCreate) (*domain.SupportTicket, error) {
	var ticket domain.SupportTicket
	err := s.client.Post(ctx, apiclient.Request{
		Path:  "/api/support/ticket",
		Token: token,
		Body:  req,
	}, &ticket)
	if err = s.settle(ctx, "ticket_create", err, cache.DomainSupport, cache.DomainAdmin); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (s *supportService) ListTickets(ctx context.Context, token string) ([]domain.SupportTicket, error) {
	var tickets []domain.SupportTicket
	if err := s.client.Get(ctx, apiclient.Request{Path: "/api/support/ticket", Token: token}, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (s *supportService) Reply(ctx context.Context, token, ticketID, message string) (*domain.SupportTicket, error) {
	var ticket domain.SupportTicket
	err := s.client.Post(ctx, apiclient.Request{
		Path:  "/api/support/ticket/" + url.PathEscape(ticketID) + "/reply",
		Token: token,
		Body:  domain.TicketReplyCreate{Message: message},
	}, &ticket)
	if err = s.settle(ctx, "ticket_reply", err, cache.DomainSupport); err != nil {
		return nil, err
	}
	return &ticket, nil
}
