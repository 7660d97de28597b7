package credential

import (
	"context"
	"sync"
	"time"

	"github.com/vietanh2810/checkin-api/internal/clock"
)

type entry struct {
	activationID uint
	issuedAt     time.Time
}

// MemoryStore keeps tokens in process memory. It is only suitable for a
// single API instance.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]entry
	ttl    time.Duration
	clock  clock.Clock
	newID  func() string
}

func NewMemoryStore(ttl time.Duration, c clock.Clock) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if c == nil {
		c = clock.Real{}
	}

	return &MemoryStore{
		tokens: make(map[string]entry),
		ttl:    ttl,
		clock:  c,
		newID:  newTokenID,
	}
}

// Issue records a fresh token and sweeps expired ones.
func (s *MemoryStore) Issue(_ context.Context, activationID uint) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	id := s.newID()
	s.tokens[id] = entry{activationID: activationID, issuedAt: now}
	s.sweepLocked(now)

	return id, nil
}

func (s *MemoryStore) Validate(_ context.Context, tokenID string) (Validation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tokens[tokenID]
	if !ok {
		return Validation{}, nil
	}
	if expired(e.issuedAt, s.clock.Now(), s.ttl) {
		delete(s.tokens, tokenID)
		return Validation{}, nil
	}

	return Validation{Valid: true, ActivationID: e.activationID, IssuedAt: e.issuedAt}, nil
}

func (s *MemoryStore) Invalidate(_ context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tokens, tokenID)
	return nil
}

func (s *MemoryStore) Sweep(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(s.clock.Now())
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.tokens)
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	for id, e := range s.tokens {
		if expired(e.issuedAt, now, s.ttl) {
			delete(s.tokens, id)
		}
	}
}
