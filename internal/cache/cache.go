// Package cache holds API responses keyed by request signature.
//
// Entries never expire on their own unless MaxAge is set; staleness is
// handled by mutation call-sites invalidating the domains they touch.
package cache

import (
	"net/url"
	"path"
	"sort"
	"strings"
	"sync"
	"time"
)

// Entry is one cached response.
type Entry struct {
	Key      string
	Path     string
	Payload  []byte
	StoredAt time.Time
}

// Domain names a family of cached GET endpoints by their path prefix.
type Domain string

const (
	DomainAccount      Domain = "/api/account"
	DomainTransaction  Domain = "/api/transaction"
	DomainAnalytics    Domain = "/api/analytics"
	DomainDeposit      Domain = "/api/deposit"
	DomainAdmin        Domain = "/api/admin"
	DomainLoan         Domain = "/api/loan"
	DomainCard         Domain = "/api/card"
	DomainNotification Domain = "/api/notification"
	DomainSupport      Domain = "/api/support"
	DomainAudit        Domain = "/api/audit"
)

func (d Domain) Prefix() string {
	return string(d)
}

type Option func(*ResponseCache)

// WithMaxAge enables time based expiry. Zero keeps entries until invalidated.
func WithMaxAge(d time.Duration) Option {
	return func(c *ResponseCache) {
		c.maxAge = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *ResponseCache) {
		if now != nil {
			c.now = now
		}
	}
}

type ResponseCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	maxAge  time.Duration
	now     func() time.Time
}

func New(opts ...Option) *ResponseCache {
	c := &ResponseCache{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key builds the normalized signature for a request: METHOD path?sorted-query.
func Key(method, p string, query url.Values) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(method))
	b.WriteByte(' ')
	b.WriteString(NormalizePath(p))
	if len(query) > 0 {
		// url.Values.Encode sorts by key
		sorted := make(url.Values, len(query))
		for k, vs := range query {
			cp := append([]string(nil), vs...)
			sort.Strings(cp)
			sorted[k] = cp
		}
		b.WriteByte('?')
		b.WriteString(sorted.Encode())
	}
	return b.String()
}

// NormalizePath cleans p and guarantees a leading slash.
func NormalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// Get returns the entry stored under key. Expired entries are dropped.
func (c *ResponseCache) Get(key string) (Entry, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}

	if c.maxAge > 0 && c.now().Sub(entry.StoredAt) > c.maxAge {
		c.mu.Lock()
		if current, still := c.entries[key]; still && current.StoredAt.Equal(entry.StoredAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return Entry{}, false
	}

	return entry, true
}

// Set stores payload under key, overwriting any previous entry.
func (c *ResponseCache) Set(key, p string, payload []byte) {
	stored := make([]byte, len(payload))
	copy(stored, payload)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = Entry{
		Key:      key,
		Path:     NormalizePath(p),
		Payload:  stored,
		StoredAt: c.now(),
	}
}

// Invalidate removes every entry whose path starts with prefix and returns how many went.
func (c *ResponseCache) Invalidate(prefix string) int {
	if prefix == "" {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if strings.HasPrefix(entry.Path, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// InvalidateDomains drops all entries under each domain.
func (c *ResponseCache) InvalidateDomains(domains ...Domain) int {
	removed := 0
	for _, d := range domains {
		removed += c.Invalidate(d.Prefix())
	}
	return removed
}

func (c *ResponseCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
}

func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
