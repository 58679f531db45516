package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"evcharging-backend/internal/model"
)

const testSecret = "my-super-secret-key-for-ev-charging-api-that-is-at-least-256-bits-long"

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour)

	token, err := svc.GenerateToken("test@example.com", model.RoleUser)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", claims.Subject)
	assert.Equal(t, model.RoleUser, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenService_RejectsInvalid(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour)

	_, err := svc.ValidateToken("invalid.token.here")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	other := NewTokenService("a-different-secret", time.Hour)
	token, err := other.GenerateToken("test@example.com", model.RoleAdmin)
	require.NoError(t, err)
	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_RejectsExpired(t *testing.T) {
	shortLived := NewTokenService(testSecret, -time.Second)
	token, err := shortLived.GenerateToken("test@example.com", model.RoleUser)
	require.NoError(t, err)

	_, err = NewTokenService(testSecret, time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_RejectsOtherAlgorithms(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour)

	claims := Claims{
		Role: model.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "x@example.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenService_RejectsUnknownRole(t *testing.T) {
	svc := NewTokenService(testSecret, time.Hour)
	token, err := svc.GenerateToken("x@example.com", model.Role("ROOT"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("password123")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", hash)

	assert.NoError(t, h.Compare(hash, "password123"))
	assert.Error(t, h.Compare(hash, "wrong"))

	_, err = h.Hash("")
	assert.Error(t, err)
}
