// Package session keeps the signed-in user between CLI invocations.
// Nothing here is durable: the file store lives in the OS temp dir.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"

	"github.com/grachmannico95/bankline/internal/apiclient"
	"github.com/grachmannico95/bankline/internal/domain"
)

// Key is the name the user payload is stored under.
const Key = "user"

var (
	ErrNoSession      = errors.New("not signed in")
	ErrSessionExpired = errors.New("session expired, sign in again")
)

type Store interface {
	Load(ctx context.Context) (*domain.User, error)
	Save(ctx context.Context, user *domain.User) error
	Clear(ctx context.Context) error
}

type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (m *MemoryStore) Load(ctx context.Context) (*domain.User, error) {
	m.mu.RLock()
	raw, ok := m.values[Key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNoSession
	}
	return decode(raw)
}

func (m *MemoryStore) Save(ctx context.Context, user *domain.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	m.mu.Lock()
	m.values[Key] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	delete(m.values, Key)
	m.mu.Unlock()
	return nil
}

// FileStore keeps {"user": ...} in a single 0600 file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// DefaultPath is bankline-session.json in the OS temp dir.
func DefaultPath() string {
	return filepath.Join(os.TempDir(), "bankline-session.json")
}

func NewFileStore(path string) *FileStore {
	if path == "" {
		path = DefaultPath()
	}
	return &FileStore{path: path}
}

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Load(ctx context.Context) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	raw, ok := doc[Key]
	if !ok {
		return nil, ErrNoSession
	}
	return decode(raw)
}

func (f *FileStore) Save(ctx context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(map[string]*domain.User{Key: user})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func (f *FileStore) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func decode(raw []byte) (*domain.User, error) {
	var user domain.User
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if user.Token == "" {
		return nil, ErrNoSession
	}
	return &user, nil
}

// Guard clears the session when err says the token was rejected and returns
// ErrSessionExpired wrapping err. Any other err is returned unchanged.
func Guard(ctx context.Context, store Store, err error) error {
	if err == nil || !apiclient.IsUnauthorized(err) {
		return err
	}
	if clearErr := store.Clear(ctx); clearErr != nil {
		return multierr.Combine(fmt.Errorf("%w: %w", ErrSessionExpired, err), clearErr)
	}
	return fmt.Errorf("%w: %w", ErrSessionExpired, err)
}

// Resetter is anything holding session-scoped state, e.g. the api client or the syncer.
type Resetter interface {
	Reset()
}

// Logout clears the stored user and resets every holder of session state.
func Logout(ctx context.Context, store Store, holders ...Resetter) error {
	for _, h := range holders {
		h.Reset()
	}
	return store.Clear(ctx)
}
