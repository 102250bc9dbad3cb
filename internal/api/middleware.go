package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/open-procurement/ecatalog/internal/auth"
)

// AuthMiddleware handles bearer token authentication against the users file.
type AuthMiddleware struct {
	authenticator *auth.Authenticator
}

// NewAuthMiddleware creates new auth middleware
func NewAuthMiddleware(authenticator *auth.Authenticator) *AuthMiddleware {
	return &AuthMiddleware{authenticator: authenticator}
}

// Authenticate verifies the bearer token from the Authorization header and
// stores the resolved identity in the request context. Every API route sits
// behind this; there is no anonymous access.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			respondDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}

		identity, err := m.authenticator.Authenticate(token)
		if err != nil {
			slog.Warn("invalid token attempt", "remote_addr", r.RemoteAddr)
			respondDetail(w, http.StatusUnauthorized, "Invalid token.")
			return
		}

		ctx := ContextWithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin restricts a route to admin identities. Criteria writes are
// admin-only; profile writes are gated by the owner token instead.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := IdentityFromContext(r.Context())
		if identity == nil {
			respondDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		if !identity.Admin {
			slog.Warn("admin permission denied", "user", identity.Name, "path", r.URL.Path)
			respondDetail(w, http.StatusForbidden, "You do not have permission to perform this action.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractToken pulls the bearer token from the Authorization header.
// Both "Bearer <token>" and a raw token are accepted.
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return header
}
