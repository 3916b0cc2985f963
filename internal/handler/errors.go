package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/grachmannico95/bankline/internal/domain"
	"github.com/grachmannico95/bankline/pkg/logger"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, domain.CodeInvalidCredentials},
	{domain.ErrInvalidToken, http.StatusUnauthorized, domain.CodeTokenExpired},
	{domain.ErrForbidden, http.StatusForbidden, domain.CodeForbidden},
	{domain.ErrDuplicateEmail, http.StatusConflict, domain.CodeDuplicateEmail},
	{domain.ErrInvalidAdminCode, http.StatusBadRequest, domain.CodeInvalidAdminCode},
	{domain.ErrInsufficientFunds, http.StatusUnprocessableEntity, domain.CodeInsufficientFunds},
	{domain.ErrAccountInactive, http.StatusUnprocessableEntity, domain.CodeAccountInactive},
	{domain.ErrDepositDecided, http.StatusConflict, domain.CodeDepositDecided},
	{domain.ErrInstallmentPaid, http.StatusConflict, domain.CodeValidation},
	{domain.ErrIdempotencyConflict, http.StatusConflict, domain.CodeIdempotencyConflict},
	{domain.ErrInvalidAmount, http.StatusBadRequest, domain.CodeValidation},
	{domain.ErrInvalidAction, http.StatusBadRequest, domain.CodeValidation},
	{domain.ErrInvalidStatus, http.StatusBadRequest, domain.CodeValidation},
	{domain.ErrUnknownCategory, http.StatusBadRequest, domain.CodeValidation},
	{domain.ErrAccountNotFound, http.StatusNotFound, domain.CodeNotFound},
	{domain.ErrDepositNotFound, http.StatusNotFound, domain.CodeNotFound},
	{domain.ErrLoanNotFound, http.StatusNotFound, domain.CodeNotFound},
	{domain.ErrCardNotFound, http.StatusNotFound, domain.CodeNotFound},
	{domain.ErrTicketNotFound, http.StatusNotFound, domain.CodeNotFound},
	{domain.ErrNotificationMissing, http.StatusNotFound, domain.CodeNotFound},
}

// respondError writes the {message, errorCode} envelope for err. Unknown
// errors become a 500 without leaking their text.
func respondError(c echo.Context, log *logger.Logger, err error) error {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return c.JSON(m.status, domain.ErrorEnvelope{Message: err.Error(), ErrorCode: m.code})
		}
	}

	log.Error(c.Request().Context(), "Unhandled error",
		"path", c.Request().URL.Path,
		"error", err,
	)
	return c.JSON(http.StatusInternalServerError, domain.ErrorEnvelope{Message: "internal server error"})
}

func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, domain.ErrorEnvelope{Message: message, ErrorCode: domain.CodeValidation})
}
