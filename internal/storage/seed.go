package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/grachmannico95/bankline/internal/domain"
)

// Demo credentials created by Seed.
const (
	DemoCustomerEmail  = "ana@bankline.test"
	DemoRecipientEmail = "ben@bankline.test"
	DemoAdminEmail     = "admin@bankline.test"
	DemoPassword       = "password123"
)

type seedUser struct {
	email   string
	role    domain.Role
	name    string
	balance string
}

var seedUsers = []seedUser{
	{DemoCustomerEmail, domain.RoleCustomer, "Ana Putri", "1500.00"},
	{DemoRecipientEmail, domain.RoleCustomer, "Ben Santoso", "250.00"},
	{DemoAdminEmail, domain.RoleAdmin, "Bank Admin", "0"},
}

// Seed loads demo accounts plus a loan with a fixed schedule, a card and a
// welcome notification for the first customer. Versions are left at zero.
func (s *MemoryStore) Seed(ctx context.Context) error {
	hash, err := s.hashPassword(DemoPassword)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var customer *account
	for _, u := range seedUsers {
		if _, exists := s.byEmail[u.email]; exists {
			continue
		}
		a := s.addAccountLocked(u.email, hash, u.role, domain.Profile{Name: u.name}, decimal.RequireFromString(u.balance))
		if u.email == DemoCustomerEmail {
			customer = a
		}
	}
	if customer == nil {
		return nil
	}

	now := s.now()
	loan := &domain.Loan{
		ID:         uuid.New().String(),
		AccountID:  customer.ID,
		Type:       "PERSONAL",
		Principal:  decimal.RequireFromString("1200.00"),
		TenureMths: 3,
		Status:     domain.LoanStatusApproved,
		CreatedAt:  now,
	}
	s.loans[loan.ID] = loan
	s.loanOrder = append(s.loanOrder, loan.ID)
	s.schedules[loan.ID] = []domain.EMIInstallment{
		{Number: 1, DueDate: now.AddDate(0, 1, 0), Amount: decimal.RequireFromString("408.33")},
		{Number: 2, DueDate: now.AddDate(0, 2, 0), Amount: decimal.RequireFromString("408.33")},
		{Number: 3, DueDate: now.AddDate(0, 3, 0), Amount: decimal.RequireFromString("408.34")},
	}

	card := &domain.Card{
		ID:         uuid.New().String(),
		AccountID:  customer.ID,
		MaskedPAN:  "4111 •••• •••• 1111",
		Network:    "VISA",
		Status:     domain.CardStatusActive,
		ExpiryDate: now.AddDate(3, 0, 0).Format("01/06"),
	}
	s.cards[card.ID] = card

	s.notifyLocked(customer.ID, "Welcome", "Your Bankline account is ready")
	return nil
}
