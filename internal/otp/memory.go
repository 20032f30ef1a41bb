package otp

import (
	"context"
	"sync"
	"time"
)

type record struct {
	code      string
	issuedAt  time.Time
	expiresAt time.Time
}

// MemoryStore is a process-local Store backed by a mutex-guarded map.
// Codes do not survive a restart, which is acceptable for short-lived,
// re-issuable OTPs — but it also means a multi-process deployment must use a
// shared backend (dynamo.OTPRepo) instead, or verify requests landing on a
// different process than the send will always fail.
type MemoryStore struct {
	mu     sync.Mutex
	codes  map[string]record
	expiry time.Duration

	now func() time.Time // overridable in tests
}

// NewMemoryStore creates a MemoryStore whose codes expire after expiry.
func NewMemoryStore(expiry time.Duration) *MemoryStore {
	return &MemoryStore{
		codes:  make(map[string]record),
		expiry: expiry,
		now:    time.Now,
	}
}

func (s *MemoryStore) Send(_ context.Context, identifier string) (string, error) {
	code, err := GenerateCode()
	if err != nil {
		return "", err
	}
	now := s.now()
	s.mu.Lock()
	s.codes[identifier] = record{code: code, issuedAt: now, expiresAt: now.Add(s.expiry)}
	s.mu.Unlock()
	return code, nil
}

func (s *MemoryStore) Verify(_ context.Context, identifier, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.codes[identifier]
	if !ok {
		return false, nil
	}
	// Lazy expiry: stale records are purged on the next verify attempt, there
	// is no background sweep.
	if s.now().After(rec.expiresAt) {
		delete(s.codes, identifier)
		return false, nil
	}
	if rec.code != code {
		return false, nil
	}
	delete(s.codes, identifier)
	return true, nil
}
