package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/internal/middleware"
	"github.com/grachmannico95/bankline/pkg/logger"
)

type AccountHandler struct {
	repo   domain.Repository
	logger *logger.Logger
}

func NewAccountHandler(repo domain.Repository, log *logger.Logger) *AccountHandler {
	return &AccountHandler{
		repo:   repo,
		logger: log,
	}
}

func (h *AccountHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, middleware.AccountFrom(c))
}

func (h *AccountHandler) UpdateProfile(c echo.Context) error {
	acc := middleware.AccountFrom(c)

	var profile domain.Profile
	if err := c.Bind(&profile); err != nil {
		return badRequest(c, "invalid request body")
	}
	if profile.Name == "" {
		return badRequest(c, "name is required")
	}

	updated, err := h.repo.UpdateProfile(c.Request().Context(), acc.ID, profile)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, updated)
}

// UpdateStatus is admin only.
func (h *AccountHandler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	admin := middleware.AccountFrom(c)

	var req domain.AccountStatusUpdate
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	target := c.Param("id")
	updated, err := h.repo.UpdateAccountStatus(ctx, target, req.Status)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if err := h.repo.RecordAudit(ctx, admin.Email, "ACCOUNT_"+string(req.Status), target); err != nil {
		h.logger.Warn(ctx, "Failed to record audit entry", "error", err)
	}

	h.logger.Info(ctx, "Account status changed",
		"account_id", target,
		"status", string(req.Status),
		"by", admin.Email,
	)
	return c.JSON(http.StatusOK, updated)
}
