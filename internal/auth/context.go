package auth

import "context"

type contextKey string

const userIDKey contextKey = "auth.user_id"

// WithUserID stores the acting user id in the context.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the acting user id, or nil when the request is
// unauthenticated or system-triggered.
func UserIDFromContext(ctx context.Context) *int64 {
	value, ok := ctx.Value(userIDKey).(int64)
	if !ok || value <= 0 {
		return nil
	}
	return &value
}
