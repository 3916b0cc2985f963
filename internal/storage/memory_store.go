package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/grachmannico95/bankline/internal/domain"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

// DefaultAdminCode unlocks ADMIN and DEVELOPER registration.
const DefaultAdminCode = "BANKLINE-ADMIN"

type account struct {
	domain.Account
	passwordHash []byte
}

type Option func(*MemoryStore)

// WithHashCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *MemoryStore) { s.hashCost = cost }
}

func WithAdminCode(code string) Option {
	return func(s *MemoryStore) { s.adminCode = code }
}

func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.now = now }
}

// MemoryStore is the in-process Repository behind the stub backend.
type MemoryStore struct {
	accounts      map[string]*account
	byEmail       map[string]string
	byNumber      map[string]string
	tokens        map[string]string
	transactions  []domain.Transaction
	deposits      []*domain.DepositRequest
	nextDepositID int64
	loans         map[string]*domain.Loan
	loanOrder     []string
	schedules     map[string][]domain.EMIInstallment
	cards         map[string]*domain.Card
	notifications []*domain.Notification
	tickets       map[string]*domain.SupportTicket
	ticketOrder   []string
	audit         []domain.AuditLog
	versions      map[domain.Category]int64
	updatedAt     map[domain.Category]time.Time
	idempotency   map[string]*domain.IdempotencyRecord
	mu            sync.RWMutex

	hashCost  int
	adminCode string
	now       func() time.Time
	notify    func(domain.ChangeSignal)
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		accounts:      make(map[string]*account),
		byEmail:       make(map[string]string),
		byNumber:      make(map[string]string),
		tokens:        make(map[string]string),
		nextDepositID: 1,
		loans:         make(map[string]*domain.Loan),
		schedules:     make(map[string][]domain.EMIInstallment),
		cards:         make(map[string]*domain.Card),
		tickets:       make(map[string]*domain.SupportTicket),
		versions:      make(map[domain.Category]int64),
		updatedAt:     make(map[domain.Category]time.Time),
		idempotency:   make(map[string]*domain.IdempotencyRecord),
		hashCost:      bcrypt.DefaultCost,
		adminCode:     DefaultAdminCode,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetNotifier registers fn to receive every version bump. It is called
// outside the store lock.
func (s *MemoryStore) SetNotifier(fn func(domain.ChangeSignal)) {
	s.mu.Lock()
	s.notify = fn
	s.mu.Unlock()
}

// mutate runs fn under the write lock and bumps the categories it returns
// when it succeeds.
func (s *MemoryStore) mutate(fn func() ([]domain.Category, error)) error {
	s.mu.Lock()
	cats, err := fn()
	var (
		sig    domain.ChangeSignal
		bumped bool
	)
	if err == nil && len(cats) > 0 {
		sig = s.bumpLocked(cats)
		bumped = true
	}
	notify := s.notify
	s.mu.Unlock()

	if bumped && notify != nil {
		notify(sig)
	}
	return err
}

func (s *MemoryStore) bumpLocked(cats []domain.Category) domain.ChangeSignal {
	now := s.now()
	sig := domain.ChangeSignal{Versions: make(map[domain.Category]int64, len(cats))}
	seen := make(map[domain.Category]bool, len(cats))
	for _, c := range cats {
		if seen[c] {
			continue
		}
		seen[c] = true
		s.versions[c]++
		s.updatedAt[c] = now
		sig.Categories = append(sig.Categories, c)
		sig.Versions[c] = s.versions[c]
	}
	return sig
}

func (s *MemoryStore) hashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
}

func (s *MemoryStore) userLocked(a *account, token string) *domain.User {
	return &domain.User{
		Token:   token,
		Email:   a.Email,
		Role:    a.Role,
		Balance: a.Balance,
		Profile: a.Profile,
	}
}

func (s *MemoryStore) issueTokenLocked(a *account) string {
	token := uuid.New().String()
	s.tokens[token] = a.ID
	return token
}

func (s *MemoryStore) addAccountLocked(email string, hash []byte, role domain.Role, profile domain.Profile, balance decimal.Decimal) *account {
	a := &account{
		Account: domain.Account{
			ID:            uuid.New().String(),
			Email:         email,
			AccountNumber: fmt.Sprintf("ACC%04d", 1001+len(s.accounts)),
			Balance:       balance,
			Status:        domain.AccountStatusActive,
			Role:          role,
			Profile:       profile,
			CreatedAt:     s.now(),
		},
		passwordHash: hash,
	}
	s.accounts[a.ID] = a
	s.byEmail[email] = a.ID
	s.byNumber[a.AccountNumber] = a.ID
	return a
}

func (s *MemoryStore) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, domain.ErrInvalidCredentials
	}
	role := req.Role
	if role == "" {
		role = domain.RoleCustomer
	}
	if role != domain.RoleCustomer && req.AdminCode != s.adminCode {
		return nil, domain.ErrInvalidAdminCode
	}

	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var user *domain.User
	err = s.mutate(func() ([]domain.Category, error) {
		if _, exists := s.byEmail[email]; exists {
			return nil, domain.ErrDuplicateEmail
		}
		a := s.addAccountLocked(email, hash, role, domain.Profile{Name: req.Name, Phone: req.Phone}, decimal.Zero)
		user = s.userLocked(a, s.issueTokenLocked(a))
		s.auditLocked(email, "REGISTER", a.ID)
		return []domain.Category{domain.CategoryAccounts}, nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *MemoryStore) Login(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.RLock()
	id, exists := s.byEmail[email]
	var hash []byte
	if exists {
		hash = s.accounts[id].passwordHash
	}
	s.mu.RUnlock()

	if !exists || bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
		return nil, domain.ErrInvalidCredentials
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}
	s.auditLocked(email, "LOGIN", a.ID)
	return s.userLocked(a, s.issueTokenLocked(a)), nil
}

func (s *MemoryStore) AccountByToken(ctx context.Context, token string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.tokens[token]
	if !ok {
		return nil, domain.ErrInvalidToken
	}
	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrInvalidToken
	}
	out := a.Account
	return &out, nil
}

// RevokeToken forgets token; the next request carrying it gets a 401.
func (s *MemoryStore) RevokeToken(token string) {
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
}

func (s *MemoryStore) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a.Account)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountNumber < out[j].AccountNumber })
	return out, nil
}

func (s *MemoryStore) UpdateProfile(ctx context.Context, accountID string, profile domain.Profile) (*domain.Account, error) {
	var out domain.Account
	err := s.mutate(func() ([]domain.Category, error) {
		a, ok := s.accounts[accountID]
		if !ok {
			return nil, domain.ErrAccountNotFound
		}
		a.Profile = profile
		out = a.Account
		return []domain.Category{domain.CategoryAccounts}, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MemoryStore) UpdateAccountStatus(ctx context.Context, accountID string, status domain.AccountStatus) (*domain.Account, error) {
	switch status {
	case domain.AccountStatusActive, domain.AccountStatusFrozen, domain.AccountStatusClosed, domain.AccountStatusPending:
	default:
		return nil, domain.ErrInvalidStatus
	}

	var out domain.Account
	err := s.mutate(func() ([]domain.Category, error) {
		a, ok := s.accounts[accountID]
		if !ok {
			return nil, domain.ErrAccountNotFound
		}
		a.Status = status
		out = a.Account
		return []domain.Category{domain.CategoryAccounts}, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MemoryStore) Transfer(ctx context.Context, fromAccountID string, req domain.TransferRequest) (*domain.Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	var debit domain.Transaction
	err := s.mutate(func() ([]domain.Category, error) {
		from, ok := s.accounts[fromAccountID]
		if !ok {
			return nil, domain.ErrAccountNotFound
		}
		toID, ok := s.byNumber[req.ToAccount]
		if !ok || toID == fromAccountID {
			return nil, domain.ErrAccountNotFound
		}
		to := s.accounts[toID]
		if from.Status != domain.AccountStatusActive || to.Status != domain.AccountStatusActive {
			return nil, domain.ErrAccountInactive
		}
		if from.Balance.LessThan(req.Amount) {
			return nil, domain.ErrInsufficientFunds
		}

		from.Balance = from.Balance.Sub(req.Amount)
		to.Balance = to.Balance.Add(req.Amount)

		desc := req.Description
		if desc == "" {
			desc = "Transfer"
		}
		debit = s.addTransactionLocked(from.ID, to.AccountNumber, domain.TransactionTypeDebit, req.Amount, desc)
		s.addTransactionLocked(to.ID, from.AccountNumber, domain.TransactionTypeCredit, req.Amount, desc)
		s.notifyLocked(to.ID, "Money received", fmt.Sprintf("%s sent you %s", from.AccountNumber, req.Amount.StringFixed(2)))
		s.auditLocked(from.Email, "TRANSFER", debit.ID)

		return []domain.Category{domain.CategoryTransactions, domain.CategoryAccounts, domain.CategoryNotifications}, nil
	})
	if err != nil {
		return nil, err
	}
	return &debit, nil
}

func (s *MemoryStore) addTransactionLocked(accountID, counterparty string, typ domain.TransactionType, amount decimal.Decimal, desc string) domain.Transaction {
	tx := domain.Transaction{
		ID:           uuid.New().String(),
		AccountID:    accountID,
		Counterparty: counterparty,
		Type:         typ,
		Amount:       amount,
		Status:       domain.TransactionStatusSuccess,
		Description:  desc,
		CreatedAt:    s.now(),
	}
	s.transactions = append(s.transactions, tx)
	return tx
}

func (s *MemoryStore) ListTransactions(ctx context.Context, accountID string, filter domain.TransactionFilter) (*domain.Page[domain.Transaction], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.Transaction
	for i := len(s.transactions) - 1; i >= 0; i-- {
		tx := s.transactions[i]
		if tx.AccountID != accountID {
			continue
		}
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		matched = append(matched, tx)
	}

	return paginate(matched, filter.Page, filter.PerPage), nil
}

func paginate[T any](items []T, page, perPage int) *domain.Page[T] {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	out := &domain.Page[T]{Items: []T{}, Page: page, PerPage: perPage, Total: len(items)}
	start := (page - 1) * perPage
	if start >= len(items) {
		return out
	}
	end := start + perPage
	if end > len(items) {
		end = len(items)
	}
	out.Items = append(out.Items, items[start:end]...)
	return out
}

func (s *MemoryStore) CreateDeposit(ctx context.Context, accountID string, req domain.DepositCreate) (*domain.DepositRequest, error) {
	if !req.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	var out domain.DepositRequest
	err := s.mutate(func() ([]domain.Category, error) {
		a, ok := s.accounts[accountID]
		if !ok {
			return nil, domain.ErrAccountNotFound
		}
		d := &domain.DepositRequest{
			ID:        s.nextDepositID,
			AccountID: a.ID,
			Email:     a.Email,
			Amount:    req.Amount,
			Method:    req.Method,
			Status:    domain.DepositStatusPending,
			CreatedAt: s.now(),
		}
		s.nextDepositID++
		s.deposits = append(s.deposits, d)
		out = *d
		return []domain.Category{domain.CategoryDeposits}, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListDeposits returns deposits newest first. An empty accountID lists every account's.
func (s *MemoryStore) ListDeposits(ctx context.Context, accountID string, status domain.DepositStatus) ([]domain.DepositRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.DepositRequest{}
	for i := len(s.deposits) - 1; i >= 0; i-- {
		d := s.deposits[i]
		if accountID != "" && d.AccountID != accountID {
			continue
		}
		if status != "" && d.Status != status {
			continue
		}
		out = append(out, *d)
	}
	return out, nil
}

func (s *MemoryStore) DecideDeposit(ctx context.Context, decision domain.DepositDecision) (*domain.DepositRequest, error) {
	if decision.Action != domain.DepositActionApprove && decision.Action != domain.DepositActionReject {
		return nil, domain.ErrInvalidAction
	}

	var out domain.DepositRequest
	err := s.mutate(func() ([]domain.Category, error) {
		var d *domain.DepositRequest
		for _, candidate := range s.deposits {
			if candidate.ID == decision.DepositRequestID {
				d = candidate
				break
			}
		}
		if d == nil {
			return nil, domain.ErrDepositNotFound
		}
		if d.Status != domain.DepositStatusPending {
			return nil, domain.ErrDepositDecided
		}
		a, ok := s.accounts[d.AccountID]
		if !ok {
			return nil, domain.ErrAccountNotFound
		}

		now := s.now()
		d.DecidedAt = &now

		if decision.Action == domain.DepositActionReject {
			d.Status = domain.DepositStatusRejected
			s.notifyLocked(a.ID, "Deposit rejected", fmt.Sprintf("Your deposit of %s was rejected", d.Amount.StringFixed(2)))
			out = *d
			return []domain.Category{domain.CategoryDeposits, domain.CategoryNotifications}, nil
		}

		d.Status = domain.DepositStatusApproved
		a.Balance = a.Balance.Add(d.Amount)
		s.addTransactionLocked(a.ID, "DEPOSIT", domain.TransactionTypeCredit, d.Amount, "Deposit")
		s.notifyLocked(a.ID, "Deposit approved", fmt.Sprintf("%s was added to your balance", d.Amount.StringFixed(2)))
		out = *d
		return []domain.Category{
			domain.CategoryDeposits,
			domain.CategoryAccounts,
			domain.CategoryTransactions,
			domain.CategoryNotifications,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *MemoryStore) notifyLocked(accountID, title, message string) {
	s.notifications = append(s.notifications, &domain.Notification{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Title:     title,
		Message:   message,
		CreatedAt: s.now(),
	})
}

func (s *MemoryStore) auditLocked(actor, action, target string) {
	s.audit = append(s.audit, domain.AuditLog{
		ID:        uuid.New().String(),
		Actor:     actor,
		Action:    action,
		Target:    target,
		CreatedAt: s.now(),
	})
}

func (s *MemoryStore) Versions(ctx context.Context) map[domain.Category]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[domain.Category]int64, len(domain.AllCategories))
	for _, c := range domain.AllCategories {
		out[c] = s.versions[c]
	}
	return out
}

// Summary counts the records visible to accountID in each category.
func (s *MemoryStore) Summary(ctx context.Context, accountID string) (*domain.DataSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.accounts[accountID]; !ok {
		return nil, domain.ErrAccountNotFound
	}

	counts := map[domain.Category]int{domain.CategoryAccounts: 1}
	for _, tx := range s.transactions {
		if tx.AccountID == accountID {
			counts[domain.CategoryTransactions]++
		}
	}
	for _, n := range s.notifications {
		if n.AccountID == accountID {
			counts[domain.CategoryNotifications]++
		}
	}
	for _, d := range s.deposits {
		if d.AccountID == accountID {
			counts[domain.CategoryDeposits]++
		}
	}
	for _, l := range s.loans {
		if l.AccountID == accountID {
			counts[domain.CategoryLoans]++
		}
	}

	summary := &domain.DataSummary{
		Categories: make(map[domain.Category]domain.CategorySummary, len(domain.AllCategories)),
		ServerTime: s.now(),
	}
	for _, c := range domain.AllCategories {
		summary.Categories[c] = domain.CategorySummary{
			Count:     counts[c],
			Version:   s.versions[c],
			UpdatedAt: s.updatedAt[c],
		}
	}
	return summary, nil
}
