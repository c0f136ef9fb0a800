package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// RefreshTokenStore persists refresh tokens. Implementations store only
// the SHA-256 hash of each token.
type RefreshTokenStore interface {
	// Issue mints a new refresh token for the user and returns the raw value.
	Issue(ctx context.Context, userID string, ttl time.Duration) (string, error)

	// Validate checks a raw token and returns the owning user id.
	Validate(ctx context.Context, token string) (string, error)

	// Revoke invalidates a single token.
	Revoke(ctx context.Context, token string) error

	// RevokeAll invalidates every token belonging to the user.
	RevokeAll(ctx context.Context, userID string) error
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

type refreshRecord struct {
	userID     string
	expiresAt  time.Time
	lastUsedAt time.Time
}

// MemoryTokenStore keeps refresh tokens in memory. Suitable for single
// node deployments and tests.
type MemoryTokenStore struct {
	mu     sync.Mutex
	byHash map[string]*refreshRecord
}

// NewMemoryTokenStore creates an empty in-memory refresh token store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{byHash: make(map[string]*refreshRecord)}
}

func (s *MemoryTokenStore) Issue(ctx context.Context, userID string, ttl time.Duration) (string, error) {
	token, err := newRefreshToken()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byHash[hashToken(token)] = &refreshRecord{
		userID:    userID,
		expiresAt: time.Now().Add(ttl),
	}
	return token, nil
}

func (s *MemoryTokenStore) Validate(ctx context.Context, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := hashToken(token)
	rec, ok := s.byHash[hash]
	if !ok {
		return "", ErrInvalidToken
	}
	if time.Now().After(rec.expiresAt) {
		delete(s.byHash, hash)
		return "", ErrInvalidToken
	}
	rec.lastUsedAt = time.Now()
	return rec.userID, nil
}

func (s *MemoryTokenStore) Revoke(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byHash, hashToken(token))
	return nil
}

func (s *MemoryTokenStore) RevokeAll(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, rec := range s.byHash {
		if rec.userID == userID {
			delete(s.byHash, hash)
		}
	}
	return nil
}
