package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/b2bmarket/backend/internal/infrastructure/cache"
)

// TokenBlacklist invalidates session tokens before they expire, on logout
// and on password changes.
type TokenBlacklist interface {
	// AddToBlacklist revokes one token by jti for the rest of its lifetime.
	AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
	// AddUserTokensToBlacklist rejects every token of the account issued
	// before now.
	AddUserTokensToBlacklist(ctx context.Context, accountID string, ttl time.Duration) error
	IsUserTokenInvalidated(ctx context.Context, accountID string, tokenIssuedAt time.Time) (bool, error)
}

const blacklistPrefix = "token:blacklist:"

// KVTokenBlacklist keeps revocations in the shared key/value store
type KVTokenBlacklist struct {
	kv  cache.KV
	now func() time.Time
}

// NewTokenBlacklist creates a blacklist over kv
func NewTokenBlacklist(kv cache.KV) *KVTokenBlacklist {
	return &KVTokenBlacklist{kv: kv, now: time.Now}
}

func (b *KVTokenBlacklist) jtiKey(jti string) string {
	return blacklistPrefix + "jti:" + jti
}

func (b *KVTokenBlacklist) accountKey(accountID string) string {
	return blacklistPrefix + "account:" + accountID
}

// AddToBlacklist implements TokenBlacklist
func (b *KVTokenBlacklist) AddToBlacklist(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := b.kv.Set(ctx, b.jtiKey(jti), "1", ttl); err != nil {
		return fmt.Errorf("failed to add token to blacklist: %w", err)
	}
	return nil
}

// IsBlacklisted implements TokenBlacklist
func (b *KVTokenBlacklist) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	_, ok, err := b.kv.Get(ctx, b.jtiKey(jti))
	if err != nil {
		return false, fmt.Errorf("failed to check token blacklist: %w", err)
	}
	return ok, nil
}

// AddUserTokensToBlacklist stores the invalidation time in unix seconds.
// Token issue times have second precision, so only tokens issued in an
// earlier second are rejected; a session opened right after a password
// reset stays valid.
func (b *KVTokenBlacklist) AddUserTokensToBlacklist(ctx context.Context, accountID string, ttl time.Duration) error {
	ts := strconv.FormatInt(b.now().Unix(), 10)
	if err := b.kv.Set(ctx, b.accountKey(accountID), ts, ttl); err != nil {
		return fmt.Errorf("failed to invalidate account tokens: %w", err)
	}
	return nil
}

// IsUserTokenInvalidated implements TokenBlacklist
func (b *KVTokenBlacklist) IsUserTokenInvalidated(ctx context.Context, accountID string, tokenIssuedAt time.Time) (bool, error) {
	raw, ok, err := b.kv.Get(ctx, b.accountKey(accountID))
	if err != nil {
		return false, fmt.Errorf("failed to check account token invalidation: %w", err)
	}
	if !ok {
		return false, nil
	}
	invalidatedAt, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("failed to parse invalidation timestamp: %w", err)
	}
	return tokenIssuedAt.Unix() < invalidatedAt, nil
}

var _ TokenBlacklist = (*KVTokenBlacklist)(nil)
