package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	blacklistKeyPrefix   = "token:blacklist:"
	userInvalidKeyPrefix = "user:invalidated:"
)

// TokenBlacklist defines the interface for token revocation
type TokenBlacklist interface {
	// AddToBlacklist adds a token ID to the blacklist with a TTL
	AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error

	// IsBlacklisted checks if a token ID is blacklisted
	IsBlacklisted(ctx context.Context, jti string) (bool, error)

	// AddUserTokensToBlacklist invalidates all tokens for a user issued
	// before now (used on password change or role change)
	AddUserTokensToBlacklist(ctx context.Context, userID string, ttl time.Duration) error

	// IsUserTokenInvalidated checks if a user's token issued at a given
	// time has been invalidated
	IsUserTokenInvalidated(ctx context.Context, userID string, issuedAt time.Time) (bool, error)
}

// RedisTokenBlacklist implements TokenBlacklist using Redis
type RedisTokenBlacklist struct {
	client *redis.Client
}

// NewRedisTokenBlacklist creates a Redis-backed token blacklist
func NewRedisTokenBlacklist(client *redis.Client) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{client: client}
}

func (b *RedisTokenBlacklist) AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // already expired, nothing to revoke
	}
	key := blacklistKeyPrefix + jti
	if err := b.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

func (b *RedisTokenBlacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	key := blacklistKeyPrefix + jti
	n, err := b.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return n > 0, nil
}

func (b *RedisTokenBlacklist) AddUserTokensToBlacklist(ctx context.Context, userID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	key := userInvalidKeyPrefix + userID
	now := time.Now().Unix()
	if err := b.client.Set(ctx, key, now, ttl).Err(); err != nil {
		return fmt.Errorf("failed to invalidate user tokens: %w", err)
	}
	return nil
}

func (b *RedisTokenBlacklist) IsUserTokenInvalidated(ctx context.Context, userID string, issuedAt time.Time) (bool, error) {
	key := userInvalidKeyPrefix + userID
	val, err := b.client.Get(ctx, key).Int64()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to check user token invalidation: %w", err)
	}
	// Tokens issued at or before the invalidation timestamp are rejected.
	return issuedAt.Unix() <= val, nil
}

// InMemoryTokenBlacklist implements TokenBlacklist in memory. Suitable for
// tests and single-instance deployments without Redis.
type InMemoryTokenBlacklist struct {
	mu          sync.RWMutex
	tokens      map[string]time.Time // jti -> expiry
	userInvalid map[string]userInvalidation
}

type userInvalidation struct {
	invalidatedAt time.Time
	expiresAt     time.Time
}

// NewInMemoryTokenBlacklist creates an in-memory token blacklist
func NewInMemoryTokenBlacklist() *InMemoryTokenBlacklist {
	return &InMemoryTokenBlacklist{
		tokens:      make(map[string]time.Time),
		userInvalid: make(map[string]userInvalidation),
	}
}

func (b *InMemoryTokenBlacklist) AddToBlacklist(_ context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cleanupLocked()
	b.tokens[jti] = time.Now().Add(ttl)
	return nil
}

func (b *InMemoryTokenBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	expiry, ok := b.tokens[jti]
	if !ok {
		return false, nil
	}
	return time.Now().Before(expiry), nil
}

func (b *InMemoryTokenBlacklist) AddUserTokensToBlacklist(_ context.Context, userID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cleanupLocked()
	now := time.Now()
	b.userInvalid[userID] = userInvalidation{
		invalidatedAt: now,
		expiresAt:     now.Add(ttl),
	}
	return nil
}

func (b *InMemoryTokenBlacklist) IsUserTokenInvalidated(_ context.Context, userID string, issuedAt time.Time) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	inv, ok := b.userInvalid[userID]
	if !ok {
		return false, nil
	}
	if time.Now().After(inv.expiresAt) {
		return false, nil
	}
	return !issuedAt.After(inv.invalidatedAt), nil
}

// cleanupLocked removes expired entries. Caller must hold the write lock.
func (b *InMemoryTokenBlacklist) cleanupLocked() {
	now := time.Now()
	for jti, expiry := range b.tokens {
		if now.After(expiry) {
			delete(b.tokens, jti)
		}
	}
	for user, inv := range b.userInvalid {
		if now.After(inv.expiresAt) {
			delete(b.userInvalid, user)
		}
	}
}
