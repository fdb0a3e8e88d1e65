package middleware

import (
	"context"
	"net/http"
	"strings"

	"chronicle/internal/identity/models"
	dErrors "chronicle/pkg/domain-errors"
	"chronicle/pkg/platform/httputil"
)

// PrincipalResolver exchanges a bearer token for a caller identity backed by
// a fresh user row.
type PrincipalResolver interface {
	ResolveToken(ctx context.Context, tokenString string) (models.Principal, *models.User, error)
}

type principalKey struct{}

// Principal resolves the Authorization header into a principal on the request
// context. Requests without a header proceed as anonymous; a header that is
// present but invalid is rejected with 401 rather than silently downgraded.
func Principal(resolver PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				ctx := WithPrincipal(r.Context(), models.Anonymous())
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenString == "" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "malformed authorization header"))
				return
			}

			principal, _, err := resolver.ResolveToken(r.Context(), tokenString)
			if err != nil {
				httputil.WriteError(w, err)
				return
			}

			ctx := WithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithPrincipal stores a principal on the context. Exported for handler tests.
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// GetPrincipal retrieves the caller identity from the context. Returns the
// anonymous principal if none was set.
func GetPrincipal(ctx context.Context) models.Principal {
	if p, ok := ctx.Value(principalKey{}).(models.Principal); ok {
		return p
	}
	return models.Anonymous()
}

// RequireAuthenticated rejects anonymous requests.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetPrincipal(r.Context()).Authenticated {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects requests without active admin authority.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := GetPrincipal(r.Context())
		if !p.Authenticated {
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
			return
		}
		if !p.IsAdmin() {
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "admin privileges required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
