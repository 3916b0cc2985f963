package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/internal/middleware"
	"github.com/grachmannico95/bankline/pkg/logger"
)

type NotificationHandler struct {
	repo   domain.Repository
	logger *logger.Logger
}

func NewNotificationHandler(repo domain.Repository, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		repo:   repo,
		logger: log,
	}
}

func (h *NotificationHandler) List(c echo.Context) error {
	acc := middleware.AccountFrom(c)

	list, err := h.repo.ListNotifications(c.Request().Context(), acc.ID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	acc := middleware.AccountFrom(c)

	if err := h.repo.MarkNotificationRead(c.Request().Context(), acc.ID, c.Param("id")); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	acc := middleware.AccountFrom(c)

	if err := h.repo.MarkAllNotificationsRead(c.Request().Context(), acc.ID); err != nil {
		return respondError(c, h.logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}
