// Package auth carries the authenticated caller of an admin request.
package auth

import "context"

type contextKey struct{}

type AuthContext struct {
	Username string
	Role     string
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

// Actor names the caller for audit logs and notifications. Requests that
// did not pass through admin auth are attributed to "system".
func Actor(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok || ac.Username == "" {
		return "system"
	}
	return ac.Username
}

func IsAdmin(ctx context.Context) bool {
	ac, ok := FromContext(ctx)
	if !ok {
		return false
	}
	return ac.Role == "admin"
}
