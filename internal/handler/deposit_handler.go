package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/internal/middleware"
	"github.com/grachmannico95/bankline/pkg/logger"
)

type DepositHandler struct {
	repo   domain.Repository
	logger *logger.Logger
}

func NewDepositHandler(repo domain.Repository, log *logger.Logger) *DepositHandler {
	return &DepositHandler{
		repo:   repo,
		logger: log,
	}
}

func (h *DepositHandler) Request(c echo.Context) error {
	ctx := c.Request().Context()
	acc := middleware.AccountFrom(c)

	var req domain.DepositCreate
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	deposit, err := h.repo.CreateDeposit(ctx, acc.ID, req)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	h.logger.Info(ctx, "Deposit requested",
		"deposit_id", deposit.ID,
		"amount", deposit.Amount.String(),
	)
	return c.JSON(http.StatusCreated, deposit)
}

// List shows the caller's own requests; privileged roles see everyone's.
func (h *DepositHandler) List(c echo.Context) error {
	acc := middleware.AccountFrom(c)

	owner := acc.ID
	if acc.IsPrivileged() {
		owner = ""
	}

	deposits, err := h.repo.ListDeposits(c.Request().Context(), owner, domain.DepositStatus(c.QueryParam("status")))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, deposits)
}

// Action approves or rejects a pending request. Admin only.
func (h *DepositHandler) Action(c echo.Context) error {
	ctx := c.Request().Context()
	admin := middleware.AccountFrom(c)

	var decision domain.DepositDecision
	if err := c.Bind(&decision); err != nil {
		return badRequest(c, "invalid request body")
	}

	deposit, err := h.repo.DecideDeposit(ctx, decision)
	if err != nil {
		h.logger.Warn(ctx, "Deposit decision rejected",
			"deposit_id", decision.DepositRequestID,
			"action", string(decision.Action),
			"error", err,
		)
		return respondError(c, h.logger, err)
	}
	if err := h.repo.RecordAudit(ctx, admin.Email, "DEPOSIT_"+string(deposit.Status), strconv.FormatInt(deposit.ID, 10)); err != nil {
		h.logger.Warn(ctx, "Failed to record audit entry", "error", err)
	}

	h.logger.Info(ctx, "Deposit decided",
		"deposit_id", deposit.ID,
		"status", string(deposit.Status),
		"by", admin.Email,
	)
	return c.JSON(http.StatusOK, deposit)
}
