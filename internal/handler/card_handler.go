package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/internal/middleware"
	"github.com/grachmannico95/bankline/pkg/logger"
)

type CardHandler struct {
	repo   domain.Repository
	logger *logger.Logger
}

func NewCardHandler(repo domain.Repository, log *logger.Logger) *CardHandler {
	return &CardHandler{
		repo:   repo,
		logger: log,
	}
}

func (h *CardHandler) List(c echo.Context) error {
	acc := middleware.AccountFrom(c)

	cards, err := h.repo.ListCards(c.Request().Context(), acc.ID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, cards)
}

func (h *CardHandler) SetStatus(c echo.Context) error {
	acc := middleware.AccountFrom(c)

	var req domain.CardStatusUpdate
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	card, err := h.repo.SetCardStatus(c.Request().Context(), acc.ID, c.Param("id"), req.Status)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, card)
}
