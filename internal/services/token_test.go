package services

import (
	"context"
	"testing"
	"time"

	"github.com/dvukovic/teamline-api/internal/cache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_StoreAndValidate(t *testing.T) {
	svc := NewTokenService(cache.NewMemory())
	ctx := context.Background()
	userID := uuid.New()
	hash := HashToken("some-refresh-token")

	require.NoError(t, svc.StoreRefreshToken(ctx, userID, hash, time.Minute))
	assert.NoError(t, svc.ValidateRefreshToken(ctx, userID, hash))
}

func TestTokenService_Validate_UnknownUser(t *testing.T) {
	svc := NewTokenService(cache.NewMemory())
	ctx := context.Background()

	err := svc.ValidateRefreshToken(ctx, uuid.New(), HashToken("whatever"))

	assert.ErrorIs(t, err, ErrRefreshTokenInvalid)
}

func TestTokenService_Validate_WrongHash(t *testing.T) {
	svc := NewTokenService(cache.NewMemory())
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, svc.StoreRefreshToken(ctx, userID, HashToken("current"), time.Minute))

	err := svc.ValidateRefreshToken(ctx, userID, HashToken("stale"))

	assert.ErrorIs(t, err, ErrRefreshTokenInvalid)
}

func TestTokenService_RotationInvalidatesOldToken(t *testing.T) {
	svc := NewTokenService(cache.NewMemory())
	ctx := context.Background()
	userID := uuid.New()
	oldHash := HashToken("old-token")
	newHash := HashToken("new-token")

	require.NoError(t, svc.StoreRefreshToken(ctx, userID, oldHash, time.Minute))
	require.NoError(t, svc.StoreRefreshToken(ctx, userID, newHash, time.Minute))

	assert.ErrorIs(t, svc.ValidateRefreshToken(ctx, userID, oldHash), ErrRefreshTokenInvalid)
	assert.NoError(t, svc.ValidateRefreshToken(ctx, userID, newHash))
}

func TestTokenService_Revoke(t *testing.T) {
	svc := NewTokenService(cache.NewMemory())
	ctx := context.Background()
	userID := uuid.New()
	hash := HashToken("some-refresh-token")

	require.NoError(t, svc.StoreRefreshToken(ctx, userID, hash, time.Minute))
	require.NoError(t, svc.RevokeRefreshToken(ctx, userID))

	assert.ErrorIs(t, svc.ValidateRefreshToken(ctx, userID, hash), ErrRefreshTokenInvalid)
}
