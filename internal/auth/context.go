package auth

import (
	"context"

	"github.com/dstrelow/gallerygate/internal/models"
)

type contextKey string

const principalContextKey contextKey = "principal"

// Principal is the resolved identity attached to an authenticated request.
type Principal struct {
	Account *models.Account
	Session *models.Session
	Client  *models.Client
	Token   string
}

// WithPrincipal returns a context carrying the authenticated principal.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

// PrincipalFromContext extracts the principal, reporting whether one exists.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(*Principal)
	return p, ok
}

// AccountFromContext returns the authenticated account, if any.
func AccountFromContext(ctx context.Context) (*models.Account, bool) {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.Account, true
	}
	return nil, false
}

// SessionFromContext returns the authenticated session, if any.
func SessionFromContext(ctx context.Context) (*models.Session, bool) {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.Session, true
	}
	return nil, false
}

// ClientFromContext returns the authenticated client, if any.
func ClientFromContext(ctx context.Context) (*models.Client, bool) {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.Client, true
	}
	return nil, false
}

// TokenFromContext returns the raw bearer token, if any.
func TokenFromContext(ctx context.Context) (string, bool) {
	if p, ok := PrincipalFromContext(ctx); ok {
		return p.Token, true
	}
	return "", false
}

// RequireAccount is the get-or-fail shape of AccountFromContext.
func RequireAccount(ctx context.Context) (*models.Account, error) {
	if account, ok := AccountFromContext(ctx); ok {
		return account, nil
	}
	return nil, models.ErrUnauthorized
}

// RequireSession is the get-or-fail shape of SessionFromContext.
func RequireSession(ctx context.Context) (*models.Session, error) {
	if session, ok := SessionFromContext(ctx); ok {
		return session, nil
	}
	return nil, models.ErrUnauthorized
}

// RequireClient is the get-or-fail shape of ClientFromContext.
func RequireClient(ctx context.Context) (*models.Client, error) {
	if client, ok := ClientFromContext(ctx); ok {
		return client, nil
	}
	return nil, models.ErrUnauthorized
}

// RequireToken is the get-or-fail shape of TokenFromContext.
func RequireToken(ctx context.Context) (string, error) {
	if token, ok := TokenFromContext(ctx); ok {
		return token, nil
	}
	return "", models.ErrUnauthorized
}
