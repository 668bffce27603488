package middleware

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"fincore/internal/core/security"
)

// Claims are the token claims the identity collaborator issues.
type Claims struct {
	jwt.RegisteredClaims

	Email string `json:"email,omitempty"`

	// Level is the authority level used by discount-limit checks.
	Level int `json:"level"`
}

// JWTValidator validates HMAC-signed tokens from the identity collaborator.
type JWTValidator struct {
	secret []byte
}

var _ TokenValidator = (*JWTValidator)(nil)

// NewJWTValidator creates a validator for the given shared secret.
func NewJWTValidator(secret string) *JWTValidator {
	return &JWTValidator{secret: []byte(secret)}
}

// ValidateToken parses and verifies a token, returning the user scope.
func (v *JWTValidator) ValidateToken(tokenString string) (*security.UserScope, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	return &security.UserScope{
		UserID: claims.Subject,
		Email:  claims.Email,
		Level:  claims.Level,
	}, nil
}
