package domain

import (
	"context"
	"time"
)

// IdempotencyRecord remembers the response to one keyed mutation. Status is
// zero while the first request is still running.
type IdempotencyRecord struct {
	Key         string
	Fingerprint string
	Status      int
	Body        []byte
	ContentType string
	CreatedAt   time.Time
}

func (r *IdempotencyRecord) Pending() bool {
	return r.Status == 0
}

// Repository is the stub backend's storage. Every mutation that touches a
// tracked category bumps that category's version.
type Repository interface {
	// Accounts and sessions
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	Login(ctx context.Context, email, password string) (*User, error)
	AccountByToken(ctx context.Context, token string) (*Account, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	UpdateProfile(ctx context.Context, accountID string, profile Profile) (*Account, error)
	UpdateAccountStatus(ctx context.Context, accountID string, status AccountStatus) (*Account, error)

	// Money movement
	Transfer(ctx context.Context, fromAccountID string, req TransferRequest) (*Transaction, error)
	ListTransactions(ctx context.Context, accountID string, filter TransactionFilter) (*Page[Transaction], error)
	CreateDeposit(ctx context.Context, accountID string, req DepositCreate) (*DepositRequest, error)
	ListDeposits(ctx context.Context, accountID string, status DepositStatus) ([]DepositRequest, error)
	DecideDeposit(ctx context.Context, decision DepositDecision) (*DepositRequest, error)

	// Loans
	ApplyLoan(ctx context.Context, accountID string, app LoanApplication) (*Loan, error)
	ListLoans(ctx context.Context, accountID string) ([]Loan, error)
	SetEMISchedule(ctx context.Context, loanID string, schedule []EMIInstallment) error
	EMISchedule(ctx context.Context, accountID, loanID string) ([]EMIInstallment, error)
	PayEMI(ctx context.Context, accountID, loanID string, installment int) (*EMIInstallment, error)

	// Cards, notifications, support
	ListCards(ctx context.Context, accountID string) ([]Card, error)
	SetCardStatus(ctx context.Context, accountID, cardID string, status CardStatus) (*Card, error)
	ListNotifications(ctx context.Context, accountID string) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, accountID, id string) error
	MarkAllNotificationsRead(ctx context.Context, accountID string) error
	CreateTicket(ctx context.Context, accountID string, req TicketCreate) (*SupportTicket, error)
	ListTickets(ctx context.Context, accountID string) ([]SupportTicket, error)
	ReplyTicket(ctx context.Context, author, ticketID, message string) (*SupportTicket, error)

	// Admin and audit
	Stats(ctx context.Context) (*AdminStats, error)
	Analytics(ctx context.Context) (*AnalyticsOverview, error)
	RecordAudit(ctx context.Context, actor, action, target string) error
	AuditLogs(ctx context.Context, filter AuditFilter) (*Page[AuditLog], error)

	// Versions
	Versions(ctx context.Context) map[Category]int64
	Summary(ctx context.Context, accountID string) (*DataSummary, error)

	// Idempotency
	BeginIdempotent(ctx context.Context, key, fingerprint string) (*IdempotencyRecord, bool, error)
	CompleteIdempotent(ctx context.Context, key string, status int, contentType string, body []byte) error
	AbandonIdempotent(ctx context.Context, key string) error
	PruneIdempotency(ctx context.Context, olderThan time.Time) (int, error)
}
