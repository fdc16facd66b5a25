package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/dvukovic/teamline-api/internal/cache"
	"github.com/google/uuid"
)

var ErrRefreshTokenInvalid = errors.New("refresh token not recognized")

// TokenService keeps the SHA-256 hash of each user's current refresh
// token in the cache, keyed per user with the refresh TTL. Issuing a new
// pair rotates the stored hash, so at most one refresh token is live per
// user at any time.
type TokenService struct {
	cache cache.Client
}

func NewTokenService(c cache.Client) *TokenService {
	return &TokenService{cache: c}
}

func refreshKey(userID uuid.UUID) string {
	return "refresh:" + userID.String()
}

func (s *TokenService) StoreRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, ttl time.Duration) error {
	return s.cache.Set(ctx, refreshKey(userID), tokenHash, ttl)
}

func (s *TokenService) ValidateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string) error {
	stored, err := s.cache.Get(ctx, refreshKey(userID))
	if errors.Is(err, cache.ErrNotFound) {
		return ErrRefreshTokenInvalid
	}
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(tokenHash)) != 1 {
		return ErrRefreshTokenInvalid
	}
	return nil
}

func (s *TokenService) RevokeRefreshToken(ctx context.Context, userID uuid.UUID) error {
	return s.cache.Delete(ctx, refreshKey(userID))
}
