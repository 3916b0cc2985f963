package apiclient

import (
	"sync"

	"github.com/google/uuid"
)

// Intent is one user-initiated mutation. Its idempotency key is fixed at
// creation, so resubmitting the same Intent lets the backend drop duplicates.
type Intent struct {
	key      string
	mu       sync.Mutex
	attempts int
	done     bool
}

func NewIntent() *Intent {
	return &Intent{key: uuid.New().String()}
}

// IntentWithKey wraps a key generated elsewhere, e.g. restored after a crash.
func IntentWithKey(key string) *Intent {
	if key == "" {
		return NewIntent()
	}
	return &Intent{key: key}
}

func (i *Intent) Key() string {
	return i.key
}

// Attempts reports how many times the intent has been sent.
func (i *Intent) Attempts() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.attempts
}

// Done reports whether the action resolved (success or permanent failure).
func (i *Intent) Done() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.done
}

func (i *Intent) markSent() {
	i.mu.Lock()
	i.attempts++
	i.mu.Unlock()
}

// settle records the outcome; only network failures leave the intent open for a retry.
func (i *Intent) settle(err error) {
	if err != nil && IsNetwork(err) {
		return
	}
	i.mu.Lock()
	i.done = true
	i.mu.Unlock()
}

// intentFor returns in, or a fresh intent when the caller did not bring one.
func intentFor(in *Intent) *Intent {
	if in != nil {
		return in
	}
	return NewIntent()
}
