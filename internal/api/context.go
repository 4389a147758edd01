package api

import (
	"context"
	"fmt"
)

// Principal is the authenticated caller, extracted from the JWT.
type Principal struct {
	Subject string
	Roles   []string
}

type contextKey string

const principalKey contextKey = "api.principal"

// WithPrincipal stashes the caller in the request context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the caller, or an error outside an authenticated
// request.
func PrincipalFrom(ctx context.Context) (*Principal, error) {
	p, ok := ctx.Value(principalKey).(*Principal)
	if !ok || p == nil {
		return nil, fmt.Errorf("no principal in context")
	}
	return p, nil
}
