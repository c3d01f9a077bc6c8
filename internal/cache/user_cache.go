// Package cache implements the Redis-backed snapshot cache that fronts the
// authoritative user store during request authentication. Entries are
// created lazily on a verification miss and disappear only through TTL
// expiry; nothing invalidates them when the underlying row changes, so the
// staleness window is bounded by the TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ykravets/contacts-api/internal/auth"
)

// snapshotVersion is bumped whenever the snapshot field list changes.
// Entries written by another version behave like a miss instead of failing
// the request.
const snapshotVersion = 1

// snapshot is the versioned wire form of a cached Principal. The field list
// is fixed so entries stay decodable across process restarts.
type snapshot struct {
	Version   int       `json:"v"`
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar,omitempty"`
	Confirmed bool      `json:"confirmed"`
	CreatedAt time.Time `json:"created_at"`
}

// UserCache stores Principal snapshots in Redis under "user:<subject>" keys.
type UserCache struct {
	rdb *redis.Client
}

func NewUserCache(rdb *redis.Client) *UserCache { return &UserCache{rdb: rdb} }

// Get returns the cached Principal for key. A missing or undecodable entry
// yields auth.ErrCacheMiss; any transport error is wrapped and returned so
// the caller can degrade to the authoritative store.
func (c *UserCache) Get(ctx context.Context, key string) (auth.Principal, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return auth.Principal{}, auth.ErrCacheMiss
	}
	if err != nil {
		return auth.Principal{}, fmt.Errorf("cache get %s: %w", key, err)
	}

	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil || s.Version != snapshotVersion {
		// An entry written by an incompatible version reads as a miss; the
		// caller refreshes it from the store.
		return auth.Principal{}, auth.ErrCacheMiss
	}
	return auth.Principal{
		ID:        s.ID,
		Username:  s.Username,
		Email:     s.Email,
		Avatar:    s.Avatar,
		Confirmed: s.Confirmed,
		CreatedAt: s.CreatedAt,
	}, nil
}

// Put stores a full snapshot of p under key and stamps the TTL. Put is an
// idempotent overwrite, so racing populations of the same key are safe.
func (c *UserCache) Put(ctx context.Context, key string, p auth.Principal, ttl time.Duration) error {
	data, err := json.Marshal(snapshot{
		Version:   snapshotVersion,
		ID:        p.ID,
		Username:  p.Username,
		Email:     p.Email,
		Avatar:    p.Avatar,
		Confirmed: p.Confirmed,
		CreatedAt: p.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("cache encode %s: %w", key, err)
	}
	if err := c.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return c.ExpireAfter(ctx, key, ttl)
}

// ExpireAfter resets the remaining lifetime of key.
func (c *UserCache) ExpireAfter(ctx context.Context, key string, ttl time.Duration) error {
	if err := c.rdb.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("cache expire %s: %w", key, err)
	}
	return nil
}
