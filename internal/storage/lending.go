package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/grachmannico95/bankline/internal/domain"
)

func (s *MemoryStore) ApplyLoan(ctx context.Context, accountID string, app domain.LoanApplication) (*domain.Loan, error) {
	if !app.Principal.IsPositive() || app.TenureMths <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var out domain.Loan
	err := s.mutate(func() ([]domain.Category, error) {
		a, ok := s.accounts[accountID]
		if !ok {
			return nil, domain.ErrAccountNotFound
		}
		l := &domain.Loan{
			ID:         uuid.New().String(),
			AccountID:  a.ID,
			Type:       app.Type,
			Principal:  app.Principal,
			TenureMths: app.TenureMths,
			Status:     domain.LoanStatusApplied,
			CreatedAt:  s.now(),
		}
		s.loans[l.ID] = l
		s.loanOrder = append(s.loanOrder, l.ID)
		s.auditLocked(a.Email, "LOAN_APPLY", l.ID)
		out = *l
		return []domain.Category{domain.CategoryLoans}, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MemoryStore) ListLoans(ctx context.Context, accountID string) ([]domain.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Loan{}
	for _, id := range s.loanOrder {
		if l := s.loans[id]; l.AccountID == accountID {
			out = append(out, *l)
		}
	}
	return out, nil
}

// SetEMISchedule stores a schedule as given. The store never derives one.
func (s *MemoryStore) SetEMISchedule(ctx context.Context, loanID string, schedule []domain.EMIInstallment) error {
	return s.mutate(func() ([]domain.Category, error) {
		if _, ok := s.loans[loanID]; !ok {
			return nil, domain.ErrLoanNotFound
		}
		s.schedules[loanID] = append([]domain.EMIInstallment(nil), schedule...)
		return []domain.Category{domain.CategoryLoans}, nil
	})
}

func (s *MemoryStore) EMISchedule(ctx context.Context, accountID, loanID string) ([]domain.EMIInstallment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.loans[loanID]
	if !ok || l.AccountID != accountID {
		return nil, domain.ErrLoanNotFound
	}
	return append([]domain.EMIInstallment{}, s.schedules[loanID]...), nil
}

func (s *MemoryStore) PayEMI(ctx context.Context, accountID, loanID string, installment int) (*domain.EMIInstallment, error) {
	var out domain.EMIInstallment
	err := s.mutate(func() ([]domain.Category, error) {
		l, ok := s.loans[loanID]
		if !ok || l.AccountID != accountID {
			return nil, domain.ErrLoanNotFound
		}
		schedule := s.schedules[loanID]
		idx := -1
		for i := range schedule {
			if schedule[i].Number == installment {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, domain.ErrLoanNotFound
		}
		if schedule[idx].Paid {
			return nil, domain.ErrInstallmentPaid
		}

		a := s.accounts[accountID]
		if a.Balance.LessThan(schedule[idx].Amount) {
			return nil, domain.ErrInsufficientFunds
		}
		a.Balance = a.Balance.Sub(schedule[idx].Amount)
		schedule[idx].Paid = true
		s.addTransactionLocked(a.ID, "LOAN "+l.ID, domain.TransactionTypeDebit, schedule[idx].Amount, fmt.Sprintf("EMI #%d", installment))
		s.auditLocked(a.Email, "EMI_PAY", l.ID)

		out = schedule[idx]
		return []domain.Category{domain.CategoryLoans, domain.CategoryAccounts, domain.CategoryTransactions}, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
