package storage

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/grachmannico95/bankline/internal/domain"
)

func (s *MemoryStore) ListCards(ctx context.Context, accountID string) ([]domain.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Card{}
	for _, c := range s.cards {
		if c.AccountID == accountID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *MemoryStore) SetCardStatus(ctx context.Context, accountID, cardID string, status domain.CardStatus) (*domain.Card, error) {
	if status != domain.CardStatusActive && status != domain.CardStatusBlocked {
		return nil, domain.ErrInvalidStatus
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.cards[cardID]
	if !ok || c.AccountID != accountID {
		return nil, domain.ErrCardNotFound
	}
	c.Status = status
	if a, ok := s.accounts[accountID]; ok {
		s.auditLocked(a.Email, "CARD_"+string(status), c.ID)
	}
	out := *c
	return &out, nil
}

func (s *MemoryStore) ListNotifications(ctx context.Context, accountID string) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.Notification{}
	for i := len(s.notifications) - 1; i >= 0; i-- {
		if n := s.notifications[i]; n.AccountID == accountID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (s *MemoryStore) MarkNotificationRead(ctx context.Context, accountID, id string) error {
	return s.mutate(func() ([]domain.Category, error) {
		for _, n := range s.notifications {
			if n.ID == id && n.AccountID == accountID {
				n.Read = true
				return []domain.Category{domain.CategoryNotifications}, nil
			}
		}
		return nil, domain.ErrNotificationMissing
	})
}

func (s *MemoryStore) MarkAllNotificationsRead(ctx context.Context, accountID string) error {
	return s.mutate(func() ([]domain.Category, error) {
		changed := false
		for _, n := range s.notifications {
			if n.AccountID == accountID && !n.Read {
				n.Read = true
				changed = true
			}
		}
		if !changed {
			return nil, nil
		}
		return []domain.Category{domain.CategoryNotifications}, nil
	})
}

func (s *MemoryStore) CreateTicket(ctx context.Context, accountID string, req domain.TicketCreate) (*domain.SupportTicket, error) {
	if strings.TrimSpace(req.Subject) == "" || strings.TrimSpace(req.Message) == "" {
		return nil, domain.ErrInvalidAction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	t := &domain.SupportTicket{
		ID:        uuid.New().String(),
		AccountID: a.ID,
		Subject:   req.Subject,
		Message:   req.Message,
		Status:    domain.TicketStatusOpen,
		CreatedAt: s.now(),
	}
	s.tickets[t.ID] = t
	s.ticketOrder = append(s.ticketOrder, t.ID)
	s.auditLocked(a.Email, "TICKET_CREATE", t.ID)
	return copyTicket(t), nil
}

// ListTickets returns tickets newest first. An empty accountID lists all of them.
func (s *MemoryStore) ListTickets(ctx context.Context, accountID string) ([]domain.SupportTicket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.SupportTicket{}
	for i := len(s.ticketOrder) - 1; i >= 0; i-- {
		t := s.tickets[s.ticketOrder[i]]
		if accountID != "" && t.AccountID != accountID {
			continue
		}
		out = append(out, *copyTicket(t))
	}
	return out, nil
}

// ReplyTicket appends a reply. A reply by anyone other than the owner marks
// the ticket answered.
func (s *MemoryStore) ReplyTicket(ctx context.Context, author, ticketID, message string) (*domain.SupportTicket, error) {
	if strings.TrimSpace(message) == "" {
		return nil, domain.ErrInvalidAction
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	t.Replies = append(t.Replies, domain.TicketReply{
		Author:    author,
		Message:   message,
		CreatedAt: s.now(),
	})
	if owner, ok := s.accounts[t.AccountID]; ok {
		if owner.Email == author {
			t.Status = domain.TicketStatusOpen
		} else {
			t.Status = domain.TicketStatusAnswered
		}
	}
	return copyTicket(t), nil
}

func copyTicket(t *domain.SupportTicket) *domain.SupportTicket {
	out := *t
	out.Replies = append([]domain.TicketReply(nil), t.Replies...)
	return &out
}

func (s *MemoryStore) Stats(ctx context.Context) (*domain.AdminStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domain.AdminStats{Users: len(s.accounts), TotalBalance: decimal.Zero}
	for _, a := range s.accounts {
		stats.TotalBalance = stats.TotalBalance.Add(a.Balance)
	}
	for _, d := range s.deposits {
		if d.Status == domain.DepositStatusPending {
			stats.PendingDeposits++
		}
	}
	for _, t := range s.tickets {
		if t.Status != domain.TicketStatusClosed {
			stats.OpenTickets++
		}
	}
	return stats, nil
}

// Analytics sums successful transactions across all accounts.
func (s *MemoryStore) Analytics(ctx context.Context) (*domain.AnalyticsOverview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := &domain.AnalyticsOverview{Credits: decimal.Zero, Debits: decimal.Zero}
	for _, tx := range s.transactions {
		if tx.Status != domain.TransactionStatusSuccess {
			continue
		}
		out.Transactions++
		switch tx.Type {
		case domain.TransactionTypeCredit:
			out.Credits = out.Credits.Add(tx.Amount)
		case domain.TransactionTypeDebit:
			out.Debits = out.Debits.Add(tx.Amount)
		}
	}
	return out, nil
}

func (s *MemoryStore) RecordAudit(ctx context.Context, actor, action, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.auditLocked(actor, action, target)
	return nil
}

func (s *MemoryStore) AuditLogs(ctx context.Context, filter domain.AuditFilter) (*domain.Page[domain.AuditLog], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.AuditLog
	for i := len(s.audit) - 1; i >= 0; i-- {
		entry := s.audit[i]
		if filter.Actor != "" && entry.Actor != filter.Actor {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		matched = append(matched, entry)
	}
	return paginate(matched, filter.Page, 0), nil
}
