package license

import (
	"context"
	"sync"
	"time"

	"github.com/stacklight/identity-server-go/internal/config"
	"github.com/stacklight/identity-server-go/internal/repository"
)

// SeatCache is a time-bounded cache of the active account count. Reads
// within the freshness window return the cached value; stale or forced
// reads recompute from the store. The count is computed outside the
// critical section, so a concurrent refresher may overwrite a slightly
// newer value; staleness stays bounded by the freshness window either way.
type SeatCache struct {
	users     repository.UserRepository
	freshness time.Duration
	now       func() time.Time

	mu         sync.RWMutex
	count      int
	computedAt time.Time
}

func NewSeatCache(users repository.UserRepository) *SeatCache {
	return &SeatCache{
		users:     users,
		freshness: config.SeatCountFreshness,
		now:       time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (c *SeatCache) WithClock(now func() time.Time) *SeatCache {
	c.now = now
	return c
}

// Used returns the number of active accounts, recomputing when the
// cached value is older than the freshness window or forceRefresh is set.
func (c *SeatCache) Used(ctx context.Context, forceRefresh bool) (int, error) {
	c.mu.RLock()
	count, computedAt := c.count, c.computedAt
	c.mu.RUnlock()

	if !forceRefresh && c.now().Sub(computedAt) < c.freshness {
		return count, nil
	}

	fresh, err := c.users.CountActive(ctx)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.count = fresh
	c.computedAt = c.now()
	c.mu.Unlock()

	return fresh, nil
}
