package verify

import (
	"context"
	"sync"
	"time"
)

// MaxNotRevokedTTL bounds how long a "not revoked" verdict may be reused.
// Revocation must become globally visible within this window, so the cap is
// deliberately tight.
const MaxNotRevokedTTL = 2 * time.Second

// CachedChecker wraps a RevocationChecker with a small read cache to bound
// store load on hot tokens. "Not revoked" results are reused for at most the
// configured TTL; "revoked" results are kept for the process lifetime, which
// is safe because revocation is permanent for a token. Store errors are
// never cached.
type CachedChecker struct {
	inner RevocationChecker
	ttl   time.Duration

	entries sync.Map // tokenID -> cacheEntry

	mu        sync.Mutex
	lastSweep time.Time
}

type cacheEntry struct {
	revoked bool
	staleAt time.Time // zero for revoked entries
}

// NewCachedChecker wraps inner. A ttl of zero or above MaxNotRevokedTTL is
// clamped to MaxNotRevokedTTL.
func NewCachedChecker(inner RevocationChecker, ttl time.Duration) *CachedChecker {
	if ttl <= 0 || ttl > MaxNotRevokedTTL {
		ttl = MaxNotRevokedTTL
	}
	return &CachedChecker{
		inner:     inner,
		ttl:       ttl,
		lastSweep: time.Now(),
	}
}

// IsRevoked consults the cache before the underlying store.
func (c *CachedChecker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	now := time.Now()

	if v, ok := c.entries.Load(tokenID); ok {
		entry := v.(cacheEntry)
		if entry.revoked {
			return true, nil
		}
		if now.Before(entry.staleAt) {
			return false, nil
		}
	}

	revoked, err := c.inner.IsRevoked(ctx, tokenID)
	if err != nil {
		return false, err
	}

	if revoked {
		c.entries.Store(tokenID, cacheEntry{revoked: true})
	} else {
		c.entries.Store(tokenID, cacheEntry{staleAt: now.Add(c.ttl)})
	}

	c.maybeSweep(now)
	return revoked, nil
}

// maybeSweep drops stale "not revoked" entries so the cache doesn't grow
// with every token ever seen. Revoked entries are kept: they stay correct
// until the process restarts and their count is bounded by actual
// revocations.
func (c *CachedChecker) maybeSweep(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if now.Sub(c.lastSweep) < 5*time.Minute {
		return
	}
	c.lastSweep = now

	c.entries.Range(func(key, value any) bool {
		entry := value.(cacheEntry)
		if !entry.revoked && now.After(entry.staleAt) {
			c.entries.Delete(key)
		}
		return true
	})
}
