package middleware

import (
	"context"

	pkgAuth "github.com/angelmondragon/nexusshop-storefront/pkg/auth"
)

type claimsKey struct{}

func claimsFrom(ctx context.Context) *pkgAuth.AccessTokenClaims {
	if ctx == nil {
		return nil
	}
	claims, _ := ctx.Value(claimsKey{}).(*pkgAuth.AccessTokenClaims)
	return claims
}

// UserIDFromContext returns the authenticated account id, or "" for guests.
func UserIDFromContext(ctx context.Context) string {
	if c := claimsFrom(ctx); c != nil {
		return c.UserID
	}
	return ""
}

func RoleFromContext(ctx context.Context) pkgAuth.Role {
	if c := claimsFrom(ctx); c != nil {
		return c.Role
	}
	return ""
}

// AccessIDFromContext returns the jti of the bearer token that authenticated
// the request.
func AccessIDFromContext(ctx context.Context) string {
	if c := claimsFrom(ctx); c != nil {
		return c.ID
	}
	return ""
}

func withClaims(ctx context.Context, claims *pkgAuth.AccessTokenClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}
