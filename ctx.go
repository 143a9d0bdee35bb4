package session

import "context"

var sessionCtxKey = &contextKey{"session"}

type contextKey struct {
	name string
}

// WithContext sets the Session in the given context. Transport adapters call
// this after verifying an incoming request so downstream handlers can reach
// the session without threading it explicitly.
func WithContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey, s)
}

// FromContext finds the Session from the context.
func FromContext(ctx context.Context) (*Session, bool) {
	raw, ok := ctx.Value(sessionCtxKey).(*Session)
	return raw, ok
}
