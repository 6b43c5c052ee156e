package idp

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/b2bmarket/backend/internal/infrastructure/cache"
)

// Purpose separates the token namespaces
type Purpose string

const (
	PurposeRecovery Purpose = "recovery"
	PurposeInvite   Purpose = "invite"
)

// TokenStore keeps one-time tokens. Only the SHA-256 of a token is stored;
// the value is the account id.
type TokenStore struct {
	kv cache.KV
}

// NewTokenStore creates a token store over kv
func NewTokenStore(kv cache.KV) *TokenStore {
	return &TokenStore{kv: kv}
}

func (s *TokenStore) key(p Purpose, token string) string {
	sum := sha256.Sum256([]byte(token))
	return "idp:" + string(p) + ":" + hex.EncodeToString(sum[:])
}

// Issue creates a token for accountID valid for ttl
func (s *TokenStore) Issue(ctx context.Context, p Purpose, accountID string, ttl time.Duration) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)
	if err := s.kv.Set(ctx, s.key(p, token), accountID, ttl); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}
	return token, nil
}

// Consume returns the account id of a valid token and deletes it
func (s *TokenStore) Consume(ctx context.Context, p Purpose, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	key := s.key(p, token)
	accountID, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to read token: %w", err)
	}
	if !ok {
		return "", ErrInvalidToken
	}
	if err := s.kv.Del(ctx, key); err != nil {
		return "", fmt.Errorf("failed to delete token: %w", err)
	}
	return accountID, nil
}
