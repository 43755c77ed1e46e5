// Package auth validates access tokens issued by the identity service.
// This service never mints tokens; it only verifies them.
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kantiss1998/ansania-ecommerce-sub000/pkg/middleware"
)

// tokenClaims is the access token shape shared with the identity service.
type tokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 access tokens against the shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a token verifier for the given shared secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Validate parses and validates an access token, returning the middleware
// claims. The user id falls back to the subject claim for tokens minted
// before the user_id claim existed.
func (v *Verifier) Validate(tokenString string) (*middleware.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid access token claims")
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, fmt.Errorf("access token carries no user identity")
	}

	return &middleware.Claims{
		UserID: userID,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}
