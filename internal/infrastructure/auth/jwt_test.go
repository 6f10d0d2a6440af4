package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/staffhub/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                "test-secret-that-is-long-enough-123",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "staffhub-test",
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestService()
	tenantID := uuid.New()
	userID := uuid.New()

	t.Run("round trips tenant session", func(t *testing.T) {
		token, expiresAt, err := svc.GenerateToken(GenerateTokenInput{
			TenantID: tenantID,
			UserID:   userID,
			Email:    "admin@acme.io",
		})
		require.NoError(t, err)
		assert.True(t, expiresAt.After(time.Now()))

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, tenantID.String(), claims.TenantID)
		assert.Equal(t, userID.String(), claims.UserID)
		assert.False(t, claims.PlatformOperator)

		gotTenant, err := claims.GetTenantUUID()
		require.NoError(t, err)
		assert.Equal(t, tenantID, gotTenant)
	})

	t.Run("operator session needs no tenant claim", func(t *testing.T) {
		token, _, err := svc.GenerateToken(GenerateTokenInput{
			UserID:           userID,
			PlatformOperator: true,
		})
		require.NoError(t, err)

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.True(t, claims.PlatformOperator)
		assert.Empty(t, claims.TenantID)

		gotTenant, err := claims.GetTenantUUID()
		require.NoError(t, err)
		assert.Equal(t, uuid.Nil, gotTenant)
	})

	t.Run("rejects tenant session without tenant claim", func(t *testing.T) {
		token, _, err := svc.GenerateToken(GenerateTokenInput{UserID: userID})
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrMissingTenantID)
	})

	t.Run("rejects token signed with a different secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:                "another-secret-that-is-long-enough",
			AccessTokenExpiration: 15 * time.Minute,
			Issuer:                "staffhub-test",
		})
		token, _, err := other.GenerateToken(GenerateTokenInput{TenantID: tenantID, UserID: userID})
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		expired := NewJWTService(config.JWTConfig{
			Secret:                "test-secret-that-is-long-enough-123",
			AccessTokenExpiration: -time.Minute,
			Issuer:                "staffhub-test",
		})
		token, _, err := expired.GenerateToken(GenerateTokenInput{TenantID: tenantID, UserID: userID})
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
