package storage

import (
	"context"
	"time"

	"github.com/grachmannico95/bankline/internal/domain"
)

// BeginIdempotent claims key for a request with the given fingerprint. When
// the key is already known it returns the existing record and false; the
// caller decides between replay and conflict.
func (s *MemoryStore) BeginIdempotent(ctx context.Context, key, fingerprint string) (*domain.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.idempotency[key]; ok {
		out := *existing
		return &out, false, nil
	}

	rec := &domain.IdempotencyRecord{
		Key:         key,
		Fingerprint: fingerprint,
		CreatedAt:   s.now(),
	}
	s.idempotency[key] = rec
	out := *rec
	return &out, true, nil
}

func (s *MemoryStore) CompleteIdempotent(ctx context.Context, key string, status int, contentType string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.idempotency[key]
	if !ok {
		return nil
	}
	rec.Status = status
	rec.ContentType = contentType
	rec.Body = append([]byte(nil), body...)
	return nil
}

// AbandonIdempotent releases key so the same request may be retried.
func (s *MemoryStore) AbandonIdempotent(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.idempotency, key)
	return nil
}

// PruneIdempotency drops records created before olderThan, including pending
// ones left behind by requests that never finished.
func (s *MemoryStore) PruneIdempotency(ctx context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, rec := range s.idempotency {
		if rec.CreatedAt.Before(olderThan) {
			delete(s.idempotency, key)
			removed++
		}
	}
	return removed, nil
}
