package auth

import "context"

type adminCtxKey struct{}

// ContextWithAdmin marks the request context as coming from a logged in admin.
func ContextWithAdmin(ctx context.Context) context.Context {
	return context.WithValue(ctx, adminCtxKey{}, true)
}

func IsAdmin(ctx context.Context) bool {
	isAdmin, _ := ctx.Value(adminCtxKey{}).(bool)
	return isAdmin
}
