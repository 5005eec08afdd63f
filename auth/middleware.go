package auth

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// Middleware authenticates each request with the given backend and stores the user in the request context.
// Requests without credentials pass anonymously, requests with invalid credentials are answered with 401.
func Middleware(backend Backend, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := backend.Authenticate(r)
			switch {
			case err == nil:
				next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
			case errors.Is(err, ErrNoCredentials):
				next.ServeHTTP(w, r)
			case errors.Is(err, ErrAuth):
				logger.Info("authentication failed", zap.String("path", r.URL.Path), zap.Error(err))
				Unauthorized(w, backend)
			default:
				logger.Error("authentication", zap.String("path", r.URL.Path), zap.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		})
	}
}

// Unauthorized writes a 401 response with the challenges of the backend.
func Unauthorized(w http.ResponseWriter, backend Backend) {
	if challenger, ok := backend.(Challenger); ok {
		challenger.Challenge(w)
	}
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}

// DeniedFunc answers a request which has been denied. Status is http.StatusUnauthorized for anonymous requests
// and http.StatusForbidden for users who lack a permission.
type DeniedFunc func(w http.ResponseWriter, r *http.Request, status int)

// Allowed reports whether the user in ctx has all given permissions. Anonymous users are never allowed.
func Allowed[P comparable](ctx context.Context, provider PermissionProvider[P], perms ...P) (bool, error) {
	u, ok := UserFromContext(ctx)
	if !ok {
		return false, nil
	}
	set, err := provider.UserPermissions(ctx, u)
	if errors.Is(err, ErrUnknownUser) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return set.HasAll(perms...), nil
}

// Require returns a middleware which passes only requests of users with all given permissions.
func Require[P comparable](provider PermissionProvider[P], denied DeniedFunc, perms ...P) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserFromContext(r.Context()); !ok {
				denied(w, r, http.StatusUnauthorized)
				return
			}
			allowed, err := Allowed(r.Context(), provider, perms...)
			if err != nil {
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if !allowed {
				denied(w, r, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
