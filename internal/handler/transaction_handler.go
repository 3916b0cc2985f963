package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/internal/middleware"
	"github.com/grachmannico95/bankline/pkg/logger"
)

type TransactionHandler struct {
	repo   domain.Repository
	logger *logger.Logger
}

func NewTransactionHandler(repo domain.Repository, log *logger.Logger) *TransactionHandler {
	return &TransactionHandler{
		repo:   repo,
		logger: log,
	}
}

func (h *TransactionHandler) History(c echo.Context) error {
	acc := middleware.AccountFrom(c)

	filter := domain.TransactionFilter{
		Page:    queryInt(c, "page"),
		PerPage: queryInt(c, "perPage"),
		Type:    domain.TransactionType(c.QueryParam("type")),
		Status:  domain.TransactionStatus(c.QueryParam("status")),
	}

	page, err := h.repo.ListTransactions(c.Request().Context(), acc.ID, filter)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, page)
}

func (h *TransactionHandler) Transfer(c echo.Context) error {
	ctx := c.Request().Context()
	acc := middleware.AccountFrom(c)

	var req domain.TransferRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if req.ToAccount == "" {
		return badRequest(c, "toAccount is required")
	}

	tx, err := h.repo.Transfer(ctx, acc.ID, req)
	if err != nil {
		h.logger.Warn(ctx, "Transfer rejected",
			"from", acc.AccountNumber,
			"to", req.ToAccount,
			"error", err,
		)
		return respondError(c, h.logger, err)
	}

	h.logger.Info(ctx, "Transfer completed",
		"from", acc.AccountNumber,
		"to", req.ToAccount,
		"amount", req.Amount.String(),
	)
	return c.JSON(http.StatusCreated, tx)
}

// queryInt returns 0 for missing or malformed values.
func queryInt(c echo.Context, name string) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return n
}
