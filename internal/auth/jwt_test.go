package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-that-is-long-enough-123"

func newTestJWTService() *JWTService {
	return NewJWTService(testSecret, 15*time.Minute)
}

// ============================================
// Token Generation Tests
// ============================================

func TestGenerateAccessToken(t *testing.T) {
	svc := newTestJWTService()

	token, expiresAt, err := svc.GenerateAccessToken("user-123", "buyer@refurnish.ph", "buyer")

	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))
	assert.True(t, expiresAt.Before(time.Now().Add(16*time.Minute)))
}

// ============================================
// Token Validation Tests
// ============================================

func TestValidateAccessToken_Success(t *testing.T) {
	svc := newTestJWTService()

	token, _, err := svc.GenerateAccessToken("user-123", "buyer@refurnish.ph", "buyer")
	require.NoError(t, err)

	session, err := svc.ValidateAccessToken(token)

	require.NoError(t, err)
	assert.Equal(t, "user-123", session.UserID)
	assert.Equal(t, "buyer@refurnish.ph", session.Email)
	assert.Equal(t, "buyer", session.Role)
	assert.Equal(t, token, session.Token)
}

func TestValidateAccessToken_InvalidToken(t *testing.T) {
	svc := newTestJWTService()

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"garbage token", "not-a-jwt"},
		{"truncated token", "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestValidateAccessToken_WrongSecret(t *testing.T) {
	svc := newTestJWTService()
	other := NewJWTService("a-completely-different-secret-key-456", 15*time.Minute)

	token, _, err := other.GenerateAccessToken("user-123", "buyer@refurnish.ph", "buyer")
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateAccessToken_Expired(t *testing.T) {
	svc := NewJWTService(testSecret, -1*time.Minute)

	token, _, err := svc.GenerateAccessToken("user-123", "buyer@refurnish.ph", "buyer")
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}
