package api

import (
	"context"

	"github.com/wko-katas/katas-engine/internal/auth"
	"github.com/wko-katas/katas-engine/internal/models"
)

type contextKey string

const claimsContextKey contextKey = "auth_claims"

// ClaimsFromContext extracts the verified token claims from context
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}

// UserFromContext returns the authenticated viewer, or nil for anonymous requests
func UserFromContext(ctx context.Context) *models.User {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return nil
	}
	return claims.User()
}

// ContextWithClaims adds verified token claims to context
func ContextWithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey, claims)
}
