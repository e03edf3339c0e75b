package middleware

import (
	"net/http"
	"slices"

	"github.com/angelmondragon/nexusshop-storefront/api/responses"
	"github.com/angelmondragon/nexusshop-storefront/api/validators"
	pkgAuth "github.com/angelmondragon/nexusshop-storefront/pkg/auth"
	"github.com/angelmondragon/nexusshop-storefront/pkg/auth/session"
	"github.com/angelmondragon/nexusshop-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/nexusshop-storefront/pkg/errors"
	"github.com/angelmondragon/nexusshop-storefront/pkg/logger"
)

// Auth requires a valid bearer token. With a non-nil checker, a token whose
// refresh mapping was revoked (logout) is rejected even before it expires.
func Auth(cfg config.JWTConfig, checker session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authenticate(r, cfg, checker)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			ctx := withClaims(r.Context(), claims)
			ctx = logg.WithFields(ctx, map[string]any{"user_id": claims.UserID, "role": string(claims.Role)})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(r *http.Request, cfg config.JWTConfig, checker session.AccessSessionChecker) (*pkgAuth.AccessTokenClaims, error) {
	raw, err := validators.BearerToken(r.Header.Get("Authorization"))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if checker == nil {
		return claims, nil
	}
	live, err := checker.HasSession(r.Context(), claims.ID)
	switch {
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
	case !live:
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable")
	}
	return claims, nil
}

// RequireRole lets through only requests authenticated with one of allowed.
func RequireRole(logg *logger.Logger, allowed ...pkgAuth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !slices.Contains(allowed, RoleFromContext(r.Context())) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
