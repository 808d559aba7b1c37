package revocation

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps revocations in process. Entries disappear once the
// token expiry passes.
type MemoryStore struct {
	entries *cache.Cache
	now     func() time.Time
}

func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	return &MemoryStore{
		entries: cache.New(cache.NoExpiration, cleanupInterval),
		now:     time.Now,
	}
}

func (s *MemoryStore) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	s.entries.Set(jti, struct{}{}, ttl)
	return nil
}

func (s *MemoryStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	_, found := s.entries.Get(jti)
	return found, nil
}

func (s *MemoryStore) Close() error {
	s.entries.Flush()
	return nil
}
