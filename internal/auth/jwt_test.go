package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestValidate_ValidToken(t *testing.T) {
	v := NewVerifier(testSecret)
	now := time.Now().UTC()

	tokenString := signToken(t, testSecret, &tokenClaims{
		UserID: "user-001",
		Email:  "siti@example.com",
		Role:   "customer",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-001",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})

	claims, err := v.Validate(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "user-001", claims.UserID)
	assert.Equal(t, "customer", claims.Role)
}

func TestValidate_ExpiredToken(t *testing.T) {
	v := NewVerifier(testSecret)
	now := time.Now().UTC()

	tokenString := signToken(t, testSecret, &tokenClaims{
		UserID: "user-001",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
		},
	})

	claims, err := v.Validate(tokenString)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestValidate_WrongSecret(t *testing.T) {
	v := NewVerifier(testSecret)
	now := time.Now().UTC()

	tokenString := signToken(t, "other-secret", &tokenClaims{
		UserID: "user-001",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})

	claims, err := v.Validate(tokenString)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestValidate_SubjectFallback(t *testing.T) {
	v := NewVerifier(testSecret)
	now := time.Now().UTC()

	tokenString := signToken(t, testSecret, &tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-002",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})

	claims, err := v.Validate(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "user-002", claims.UserID)
}

func TestValidate_NoIdentity(t *testing.T) {
	v := NewVerifier(testSecret)
	now := time.Now().UTC()

	tokenString := signToken(t, testSecret, &tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	})

	claims, err := v.Validate(tokenString)
	assert.Error(t, err)
	assert.Nil(t, claims)
}
