package auth

import (
	"context"
	"fmt"
	"net/http"

	"ms-visitors/internal/apperr"
	"ms-visitors/internal/logger"
	"ms-visitors/internal/models"
	"ms-visitors/internal/utils"
)

type contextKey string

const identityKey contextKey = "identity"

// Verifier turns a raw bearer token into the caller's identity.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (models.Identity, error)
}

// Middleware rejects requests without a valid bearer token and stores the
// caller identity in the request context.
func Middleware(v Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				utils.WriteError(w, "Authentication required", fmt.Errorf("%w: %v", apperr.ErrAuth, err))
				return
			}

			identity, err := v.Verify(r.Context(), rawToken)
			if err != nil {
				log.LogSecurity("TOKEN_REJECTED", fmt.Sprintf("%s %s: %v", r.Method, r.URL.Path, err))
				utils.WriteError(w, "Authentication required", fmt.Errorf("%w: invalid or expired token", apperr.ErrAuth))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireRole lets through only callers holding one of roles.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := FromContext(r.Context())
			if !ok {
				utils.WriteError(w, "Authentication required", apperr.ErrAuth)
				return
			}
			if !identity.HasRole(roles...) {
				utils.WriteError(w, "Access denied", fmt.Errorf("%w: role %s may not perform this action", apperr.ErrForbidden, identity.Role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the identity stored by Middleware.
func FromContext(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey).(models.Identity)
	return id, ok
}
