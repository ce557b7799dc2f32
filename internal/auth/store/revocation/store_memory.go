package revocation

import (
	"context"
	"sync"
	"time"
)

// InMemoryList keeps revoked JTIs with their expiry. Expired entries are
// lazily pruned on read.
type InMemoryList struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	clock   func() time.Time
}

// InMemoryOption configures an InMemoryList.
type InMemoryOption func(*InMemoryList)

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) InMemoryOption {
	return func(l *InMemoryList) {
		l.clock = clock
	}
}

func NewInMemoryList(opts ...InMemoryOption) *InMemoryList {
	l := &InMemoryList{
		entries: make(map[string]time.Time),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *InMemoryList) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[jti] = l.clock().Add(ttl)
	return nil
}

func (l *InMemoryList) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	expiry, ok := l.entries[jti]
	if !ok {
		return false, nil
	}
	if l.clock().After(expiry) {
		delete(l.entries, jti)
		return false, nil
	}
	return true, nil
}
