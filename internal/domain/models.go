package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleCustomer  Role = "CUSTOMER"
	RoleAdmin     Role = "ADMIN"
	RoleDeveloper Role = "DEVELOPER"
)

type Profile struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// User is the authenticated session payload returned by login.
type User struct {
	Token   string          `json:"token"`
	Email   string          `json:"email"`
	Role    Role            `json:"role"`
	Balance decimal.Decimal `json:"balance"`
	Profile Profile         `json:"profile"`
}

func (u *User) IsPrivileged() bool {
	return u != nil && (u.Role == RoleAdmin || u.Role == RoleDeveloper)
}

type AccountStatus string

const (
	AccountStatusActive  AccountStatus = "ACTIVE"
	AccountStatusFrozen  AccountStatus = "FROZEN"
	AccountStatusClosed  AccountStatus = "CLOSED"
	AccountStatusPending AccountStatus = "PENDING"
)

type Account struct {
	ID            string          `json:"id"`
	Email         string          `json:"email"`
	AccountNumber string          `json:"accountNumber"`
	Balance       decimal.Decimal `json:"balance"`
	Status        AccountStatus   `json:"status"`
	Role          Role            `json:"role"`
	Profile       Profile         `json:"profile"`
	CreatedAt     time.Time       `json:"createdAt"`
}

func (a *Account) IsPrivileged() bool {
	return a != nil && (a.Role == RoleAdmin || a.Role == RoleDeveloper)
}

type TransactionType string

const (
	TransactionTypeCredit TransactionType = "CREDIT"
	TransactionTypeDebit  TransactionType = "DEBIT"
)

type TransactionStatus string

const (
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusFailed  TransactionStatus = "FAILED"
	TransactionStatusPending TransactionStatus = "PENDING"
)

type Transaction struct {
	ID           string            `json:"id"`
	AccountID    string            `json:"accountId"`
	Counterparty string            `json:"counterparty"`
	Type         TransactionType   `json:"type"`
	Amount       decimal.Decimal   `json:"amount"`
	Status       TransactionStatus `json:"status"`
	Description  string            `json:"description"`
	CreatedAt    time.Time         `json:"createdAt"`
}

type TransferRequest struct {
	ToAccount   string          `json:"toAccount"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

type TransactionFilter struct {
	Page    int
	PerPage int
	Type    TransactionType
	Status  TransactionStatus
}

type Page[T any] struct {
	Items   []T `json:"items"`
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
	Total   int `json:"total"`
}

type DepositStatus string

const (
	DepositStatusPending  DepositStatus = "PENDING"
	DepositStatusApproved DepositStatus = "APPROVED"
	DepositStatusRejected DepositStatus = "REJECTED"
)

type DepositAction string

const (
	DepositActionApprove DepositAction = "approve"
	DepositActionReject  DepositAction = "reject"
)

type DepositRequest struct {
	ID        int64           `json:"id"`
	AccountID string          `json:"accountId"`
	Email     string          `json:"email"`
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method,omitempty"`
	Status    DepositStatus   `json:"status"`
	CreatedAt time.Time       `json:"createdAt"`
	DecidedAt *time.Time      `json:"decidedAt,omitempty"`
}

type LoanStatus string

const (
	LoanStatusApplied  LoanStatus = "APPLIED"
	LoanStatusApproved LoanStatus = "APPROVED"
	LoanStatusRejected LoanStatus = "REJECTED"
	LoanStatusClosed   LoanStatus = "CLOSED"
)

type LoanApplication struct {
	Type       string          `json:"type"`
	Principal  decimal.Decimal `json:"principal"`
	TenureMths int             `json:"tenureMonths"`
	Purpose    string          `json:"purpose,omitempty"`
}

type Loan struct {
	ID         string          `json:"id"`
	AccountID  string          `json:"accountId"`
	Type       string          `json:"type"`
	Principal  decimal.Decimal `json:"principal"`
	TenureMths int             `json:"tenureMonths"`
	Status     LoanStatus      `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// EMIInstallment is one row of a backend-computed schedule.
type EMIInstallment struct {
	Number  int             `json:"number"`
	DueDate time.Time       `json:"dueDate"`
	Amount  decimal.Decimal `json:"amount"`
	Paid    bool            `json:"paid"`
}

type CardStatus string

const (
	CardStatusActive  CardStatus = "ACTIVE"
	CardStatusBlocked CardStatus = "BLOCKED"
)

type Card struct {
	ID         string     `json:"id"`
	AccountID  string     `json:"accountId"`
	MaskedPAN  string     `json:"maskedPan"`
	Network    string     `json:"network"`
	Status     CardStatus `json:"status"`
	ExpiryDate string     `json:"expiryDate"`
}

type Notification struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "OPEN"
	TicketStatusAnswered TicketStatus = "ANSWERED"
	TicketStatusClosed   TicketStatus = "CLOSED"
)

type TicketReply struct {
	Author    string    `json:"author"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type SupportTicket struct {
	ID        string        `json:"id"`
	AccountID string        `json:"accountId"`
	Subject   string        `json:"subject"`
	Message   string        `json:"message"`
	Status    TicketStatus  `json:"status"`
	Replies   []TicketReply `json:"replies,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

type AuditLog struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	CreatedAt time.Time `json:"createdAt"`
}

type AuditFilter struct {
	Actor  string
	Action string
	Page   int
}

type AdminStats struct {
	Users           int             `json:"users"`
	PendingDeposits int             `json:"pendingDeposits"`
	OpenTickets     int             `json:"openTickets"`
	TotalBalance    decimal.Decimal `json:"totalBalance"`
}

type AnalyticsOverview struct {
	Credits      decimal.Decimal `json:"credits"`
	Debits       decimal.Decimal `json:"debits"`
	Transactions int             `json:"transactions"`
}
