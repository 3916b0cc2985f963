package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/internal/middleware"
	"github.com/grachmannico95/bankline/pkg/logger"
)

type SupportHandler struct {
	repo   domain.Repository
	logger *logger.Logger
}

func NewSupportHandler(repo domain.Repository, log *logger.Logger) *SupportHandler {
	return &SupportHandler{
		repo:   repo,
		logger: log,
	}
}

func (h *SupportHandler) Create(c echo.Context) error {
	acc := middleware.AccountFrom(c)

	var req domain.TicketCreate
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	ticket, err := h.repo.CreateTicket(c.Request().Context(), acc.ID, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusCreated, ticket)
}

// List shows the caller's tickets; privileged roles see the whole queue.
func (h *SupportHandler) List(c echo.Context) error {
	acc := middleware.AccountFrom(c)

	owner := acc.ID
	if acc.IsPrivileged() {
		owner = ""
	}

	tickets, err := h.repo.ListTickets(c.Request().Context(), owner)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, tickets)
}

func (h *SupportHandler) Reply(c echo.Context) error {
	ctx := c.Request().Context()
	acc := middleware.AccountFrom(c)
	ticketID := c.Param("id")

	var req domain.TicketReplyCreate
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	if !acc.IsPrivileged() {
		owned, err := h.repo.ListTickets(ctx, acc.ID)
		if err != nil {
			return respondError(c, h.logger, err)
		}
		if !containsTicket(owned, ticketID) {
			return respondError(c, h.logger, domain.ErrTicketNotFound)
		}
	}

	ticket, err := h.repo.ReplyTicket(ctx, acc.Email, ticketID, req.Message)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, ticket)
}

func containsTicket(tickets []domain.SupportTicket, id string) bool {
	for _, t := range tickets {
		if t.ID == id {
			return true
		}
	}
	return false
}
