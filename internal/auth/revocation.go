package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Blacklist records revoked token IDs until the tokens would have expired anyway.
type Blacklist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

const revokedKeyPrefix = "revoked:"

// RedisBlacklist stores revocations in Redis with a TTL matching token expiry
type RedisBlacklist struct {
	rdb *redis.Client
	now func() time.Time
}

// DialRedis creates and pings a Redis client with optional password auth
func DialRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

func NewRedisBlacklist(rdb *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{rdb: rdb, now: time.Now}
}

func (b *RedisBlacklist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(b.now())
	if ttl <= 0 {
		return nil
	}
	if err := b.rdb.Set(ctx, revokedKeyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (b *RedisBlacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := b.rdb.Get(ctx, revokedKeyPrefix+tokenID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return true, nil
}

// MemoryBlacklist keeps revocations in process memory. Expired entries are dropped by Purge.
type MemoryBlacklist struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{entries: make(map[string]time.Time), now: time.Now}
}

func (b *MemoryBlacklist) Revoke(_ context.Context, tokenID string, until time.Time) error {
	if !until.After(b.now()) {
		return nil
	}
	b.mu.Lock()
	b.entries[tokenID] = until
	b.mu.Unlock()
	return nil
}

func (b *MemoryBlacklist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	b.mu.RLock()
	until, ok := b.entries[tokenID]
	b.mu.RUnlock()
	return ok && until.After(b.now()), nil
}

// Purge drops entries whose tokens have expired and returns how many were removed
func (b *MemoryBlacklist) Purge() int {
	now := b.now()
	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for id, until := range b.entries {
		if !until.After(now) {
			delete(b.entries, id)
			removed++
		}
	}
	return removed
}
