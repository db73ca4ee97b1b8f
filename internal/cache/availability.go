// Package cache provides a Redis-backed read-through cache for session
// availability.  The cache is an optimization for the display path
// only; every capacity decision is made against the database under the
// session row lock, so a stale cached value can never oversell.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how stale a cached availability value can get even
// if an invalidation is lost.
const DefaultTTL = 30 * time.Second

// Availability caches available-spot counts per session.  A nil
// *Availability or one built around a nil Redis client degrades to a
// pass-through: Get always misses, Set and Invalidate do nothing.  This
// mirrors how the Redis client constructor returns nil when the server
// is unreachable and callers degrade gracefully.
type Availability struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAvailability builds an Availability around the given client.
// ttl <= 0 falls back to DefaultTTL.
func NewAvailability(client *redis.Client, ttl time.Duration) *Availability {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Availability{client: client, ttl: ttl}
}

func key(sessionID uint64) string {
	return fmt.Sprintf("availability:session:%d", sessionID)
}

// Get returns the cached spot count for the session and whether the
// lookup hit.  Any Redis error is treated as a miss.
func (a *Availability) Get(ctx context.Context, sessionID uint64) (uint32, bool) {
	if a == nil || a.client == nil {
		return 0, false
	}
	val, err := a.client.Get(ctx, key(sessionID)).Result()
	if err != nil {
		return 0, false
	}
	n, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}

// Set stores the spot count for the session with the configured TTL.
// Errors are ignored; the next read simply misses.
func (a *Availability) Set(ctx context.Context, sessionID uint64, spots uint32) {
	if a == nil || a.client == nil {
		return
	}
	_ = a.client.SetEx(ctx, key(sessionID), strconv.FormatUint(uint64(spots), 10), a.ttl).Err()
}

// Invalidate drops the cached value for the session.  Called after
// every committed capacity mutation.
func (a *Availability) Invalidate(ctx context.Context, sessionID uint64) {
	if a == nil || a.client == nil {
		return
	}
	_ = a.client.Del(ctx, key(sessionID)).Err()
}
