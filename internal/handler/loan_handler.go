package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/internal/middleware"
	"github.com/grachmannico95/bankline/pkg/logger"
)

type LoanHandler struct {
	repo   domain.Repository
	logger *logger.Logger
}

func NewLoanHandler(repo domain.Repository, log *logger.Logger) *LoanHandler {
	return &LoanHandler{
		repo:   repo,
		logger: log,
	}
}

func (h *LoanHandler) Apply(c echo.Context) error {
	ctx := c.Request().Context()
	acc := middleware.AccountFrom(c)

	var app domain.LoanApplication
	if err := c.Bind(&app); err != nil {
		return badRequest(c, "invalid request body")
	}

	loan, err := h.repo.ApplyLoan(ctx, acc.ID, app)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	h.logger.Info(ctx, "Loan application received",
		"loan_id", loan.ID,
		"principal", loan.Principal.String(),
	)
	return c.JSON(http.StatusCreated, loan)
}

func (h *LoanHandler) List(c echo.Context) error {
	acc := middleware.AccountFrom(c)

	loans, err := h.repo.ListLoans(c.Request().Context(), acc.ID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *LoanHandler) Schedule(c echo.Context) error {
	acc := middleware.AccountFrom(c)

	schedule, err := h.repo.EMISchedule(c.Request().Context(), acc.ID, c.Param("id"))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, schedule)
}

func (h *LoanHandler) PayEMI(c echo.Context) error {
	ctx := c.Request().Context()
	acc := middleware.AccountFrom(c)

	var req domain.EMIPayment
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.Installment <= 0 {
		return badRequest(c, "installment is required")
	}

	paid, err := h.repo.PayEMI(ctx, acc.ID, c.Param("id"), req.Installment)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	h.logger.Info(ctx, "EMI paid",
		"loan_id", c.Param("id"),
		"installment", paid.Number,
	)
	return c.JSON(http.StatusOK, paid)
}
