package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/pkg/logger"
)

// AdminHandler serves the back-office reads. Routes are mounted behind RequireRole.
type AdminHandler struct {
	repo   domain.Repository
	logger *logger.Logger
}

func NewAdminHandler(repo domain.Repository, log *logger.Logger) *AdminHandler {
	return &AdminHandler{
		repo:   repo,
		logger: log,
	}
}

func (h *AdminHandler) Users(c echo.Context) error {
	users, err := h.repo.ListAccounts(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, users)
}

func (h *AdminHandler) Stats(c echo.Context) error {
	stats, err := h.repo.Stats(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) Analytics(c echo.Context) error {
	overview, err := h.repo.Analytics(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, overview)
}

func (h *AdminHandler) AuditLogs(c echo.Context) error {
	page, err := h.repo.AuditLogs(c.Request().Context(), domain.AuditFilter{
		Actor:  c.QueryParam("actor"),
		Action: c.QueryParam("action"),
		Page:   queryInt(c, "page"),
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, page)
}
