package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"fincore/internal/core/apperror"
	"fincore/internal/core/security"
)

// TokenValidator resolves a bearer token into the acting user's scope.
// Identity itself lives with an external collaborator; this surface only
// consumes its signed claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*security.UserScope, error)
}

// Auth middleware validates bearer tokens and populates the user scope
// that discount-authority and audit attribution read downstream.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		scope, err := validator.ValidateToken(parts[1])
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}

		ctx := security.WithScope(c.Request.Context(), scope)
		c.Request = c.Request.WithContext(ctx)

		c.Set("user_id", scope.UserID)
		c.Set("user_level", scope.Level)

		c.Next()
	}
}

// RequireLevel rejects requests from users below the given authority level.
func RequireLevel(level int) gin.HandlerFunc {
	return func(c *gin.Context) {
		scope := security.GetScope(c.Request.Context())
		if scope == nil {
			abortUnauthorized(c, "authentication required")
			return
		}
		if scope.Level < level {
			_ = c.Error(
				apperror.NewForbidden("insufficient authority level").
					WithDetail("required_level", level).
					WithDetail("user_level", scope.Level),
			)
			c.Abort()
			return
		}
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}
