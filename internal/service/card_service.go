package service

import (
	"context"
	"net/url"

	"github.com/grachmannico95/bankline/internal/apiclient"
	"github.com/grachmannico95/bankline/internal/cache"
	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/pkg/logger"
)

type CardService interface {
	List(ctx context.Context, token string) ([]domain.Card, error)
	SetStatus(ctx context.Context, token, cardID string, status domain.CardStatus) (*domain.Card, error)
}

type cardService struct {
	base
}

func NewCardService(client *apiclient.Client, log *logger.Logger) CardService {
	return &cardService{base: newBase(client, log)}
}

func (s *cardService) List(ctx context.Context, token string) ([]domain.Card, error) {
	var cards []domain.Card
	if err := s.client.Get(ctx, apiclient.Request{Path: "/api/card", Token: token}, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

func (s *cardService) SetStatus(ctx context.Context, token, cardID string, status domain.CardStatus) (*domain.Card, error) {
	var card domain.Card
	err := s.client.Put(ctx, apiclient.Request{
		Path:  "/api/card/" + url.PathEscape(cardID) + "/status",
		Token: token,
		Body:  domain.CardStatusUpdate{Status: status},
	}, &card)
	if err = s.settle(ctx, "card_status", err, cache.DomainCard); err != nil {
		return nil, err
	}
	return &card, nil
}
