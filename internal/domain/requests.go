package domain

import "github.com/shopspring/decimal"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Role      Role   `json:"role,omitempty"`
	AdminCode string `json:"adminCode,omitempty"`
}

type AccountStatusUpdate struct {
	Status AccountStatus `json:"status"`
}

type DepositCreate struct {
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method,omitempty"`
}

type DepositDecision struct {
	Action           DepositAction `json:"action"`
	DepositRequestID int64         `json:"depositRequestId"`
}

type EMIPayment struct {
	Installment int `json:"installment"`
}

type CardStatusUpdate struct {
	Status CardStatus `json:"status"`
}

type TicketCreate struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type TicketReplyCreate struct {
	Message string `json:"message"`
}
