package authpublic

import (
	"context"
	"net/http"
)

type contextKey int

const loginStateKey contextKey = iota

// WithLoginState returns a copy of ctx carrying state.
func WithLoginState(ctx context.Context, state *LoginState) context.Context {
	return context.WithValue(ctx, loginStateKey, state)
}

// LoginStateFromContext returns nil if the middleware has not run.
func LoginStateFromContext(ctx context.Context) *LoginState {
	s, _ := ctx.Value(loginStateKey).(*LoginState)
	return s
}

func LoginStateFromRequest(r *http.Request) *LoginState {
	if r == nil {
		return nil
	}
	return LoginStateFromContext(r.Context())
}
