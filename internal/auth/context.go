package auth

import "context"

type contextKey string

const (
	contextUserID    contextKey = "userID"
	contextSessionID contextKey = "sessionID"
)

// WithIdentity returns ctx carrying the authenticated user and session.
func WithIdentity(ctx context.Context, userID, sessionID string) context.Context {
	ctx = context.WithValue(ctx, contextUserID, userID)
	return context.WithValue(ctx, contextSessionID, sessionID)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(contextUserID).(string)
	return val, ok && val != ""
}

func SessionIDFromContext(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(contextSessionID).(string)
	return val, ok && val != ""
}
