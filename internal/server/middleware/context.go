package middleware

import "context"

type contextKey string

const ContextKeyRole contextKey = "role"

func RoleFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ContextKeyRole).(string)
	return v, ok
}
