// Package ratelimit provides the token bucket limiters used by the router.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/zerowrap"
	"golang.org/x/time/rate"

	"github.com/bnema/spaceport/internal/boundaries/out"
)

const (
	// maxKeys triggers eviction of idle per-key limiters.
	maxKeys = 10000
	// idleAfter is how long a key must be unused before it can be evicted.
	idleAfter = 10 * time.Minute
)

// Ensure MemoryStore implements out.RateLimiter.
var _ out.RateLimiter = (*MemoryStore)(nil)

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryStore keeps one token bucket per key in memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	rps     float64
	burst   int
	now     func() time.Time
	log     zerowrap.Logger
}

// NewMemoryStore creates a new in-memory rate limiter store.
func NewMemoryStore(rps float64, burst int, log zerowrap.Logger) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		rps:     rps,
		burst:   burst,
		now:     time.Now,
		log:     log,
	}
}

// Allow checks if a request identified by key is allowed.
func (s *MemoryStore) Allow(ctx context.Context, key string) bool {
	return s.AllowN(ctx, key, 1)
}

// AllowN checks if n requests identified by key are allowed.
func (s *MemoryStore) AllowN(_ context.Context, key string, n int) bool {
	now := s.now()
	return s.limiter(key, now).AllowN(now, n)
}

// Len returns the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) limiter(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		e.lastSeen = now
		return e.limiter
	}

	if len(s.entries) >= maxKeys {
		s.evictIdle(now)
	}

	e := &entry{limiter: rate.NewLimiter(rate.Limit(s.rps), s.burst), lastSeen: now}
	s.entries[key] = e
	return e.limiter
}

// evictIdle drops keys unused for idleAfter. Must be called with mu held.
func (s *MemoryStore) evictIdle(now time.Time) {
	evicted := 0
	for key, e := range s.entries {
		if now.Sub(e.lastSeen) >= idleAfter {
			delete(s.entries, key)
			evicted++
		}
	}
	s.log.Debug().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "ratelimit").
		Int("evicted", evicted).
		Int("remaining", len(s.entries)).
		Msg("evicted idle rate limiters")
}
