// Package security carries the acting user's identity through context.
// Identity resolution itself is an external collaborator; this core only
// consumes the user id and authority level it supplies.
package security

import (
	"context"
)

// UserScope describes the acting user for an operation.
type UserScope struct {
	UserID string
	Email  string

	// Level is the authority level used for discount-limit and approval
	// checks. Level 9 is administrator.
	Level int
}

type scopeKey struct{}

// WithScope adds the user scope to context.
func WithScope(ctx context.Context, scope *UserScope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// GetScope returns the user scope from context, or nil.
func GetScope(ctx context.Context) *UserScope {
	if s, ok := ctx.Value(scopeKey{}).(*UserScope); ok {
		return s
	}
	return nil
}

// GetUserID returns the acting user id from context or empty string.
func GetUserID(ctx context.Context) string {
	if s := GetScope(ctx); s != nil {
		return s.UserID
	}
	return ""
}

// GetUserLevel returns the acting user's authority level, or 0 when no
// scope is present (no authority).
func GetUserLevel(ctx context.Context) int {
	if s := GetScope(ctx); s != nil {
		return s.Level
	}
	return 0
}

// AdminLevel is the authority level that bypasses per-type discount tables.
const AdminLevel = 9
