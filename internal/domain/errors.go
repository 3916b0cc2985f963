package domain

import "errors"

var (
	ErrUnknownCategory     = errors.New("unknown data category")
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrDepositNotFound     = errors.New("deposit request not found")
	ErrDepositDecided      = errors.New("deposit request already decided")
	ErrInvalidAction       = errors.New("invalid action")
	ErrNotificationMissing = errors.New("notification not found")
	ErrLoanNotFound        = errors.New("loan not found")
	ErrCardNotFound        = errors.New("card not found")
	ErrTicketNotFound      = errors.New("ticket not found")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrInvalidAdminCode    = errors.New("invalid admin code")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrIdempotencyConflict = errors.New("idempotency key reused with a different request")
)

// Error codes carried in the {message, errorCode} envelope.
const (
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodeForbidden           = "FORBIDDEN"
	CodeDuplicateEmail      = "DUPLICATE_EMAIL"
	CodeInvalidAdminCode    = "INVALID_ADMIN_CODE"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeInsufficientFunds   = "INSUFFICIENT_FUNDS"
	CodeNotFound            = "NOT_FOUND"
	CodeValidation          = "VALIDATION_ERROR"
	CodeIdempotencyConflict = "IDEMPOTENCY_CONFLICT"
	CodeDepositDecided      = "DEPOSIT_ALREADY_DECIDED"
)

var (
	ErrInvalidToken          = errors.New("invalid or expired token")
	ErrForbidden             = errors.New("insufficient role")
	ErrAccountInactive       = errors.New("account is not active")
	ErrInstallmentPaid       = errors.New("installment already paid")
	ErrInvalidStatus         = errors.New("invalid status")
	ErrIdempotencyInProgress = errors.New("a request with this idempotency key is still in progress")
)

// ErrorEnvelope is the JSON body of every non-2xx backend response.
type ErrorEnvelope struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode,omitempty"`
}

const CodeAccountInactive = "ACCOUNT_INACTIVE"
