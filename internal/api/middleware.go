package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/wko-katas/katas-engine/internal/access"
	"github.com/wko-katas/katas-engine/internal/auth"
)

// TokenVerifier validates bearer tokens
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// AuthMiddleware handles bearer token authentication
type AuthMiddleware struct {
	verifier TokenVerifier
	logger   *slog.Logger
}

// NewAuthMiddleware creates new auth middleware
func NewAuthMiddleware(verifier TokenVerifier, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, logger: logger}
}

// Authenticate attaches the viewer to the request when a token is present.
// Requests without a token continue anonymously; an invalid token is rejected.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.verifier.Verify(token)
		if err != nil {
			m.logger.Warn("invalid token attempt", "error", err, "remote_addr", r.RemoteAddr)
			respondError(w, http.StatusUnauthorized, "invalid_token", "the provided token is not valid")
			return
		}

		m.logger.Debug("authenticated request", "username", claims.Username, "belt", claims.Belt)

		ctx := ContextWithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireUser rejects anonymous requests
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ClaimsFromContext(r.Context()) == nil {
			respondError(w, http.StatusUnauthorized, "not_authenticated", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin rejects callers without the admin belt
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			respondError(w, http.StatusUnauthorized, "not_authenticated", "authentication required")
			return
		}

		if !access.IsAdmin(claims.Belt) {
			m.logger.Warn("admin permission denied",
				"username", claims.Username,
				"belt", claims.Belt,
			)
			respondError(w, http.StatusForbidden, "forbidden", "admin privileges required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractToken reads the bearer token from the Authorization header, falling
// back to the token query parameter used by video elements and websockets.
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		if token, ok := strings.CutPrefix(authHeader, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return strings.TrimSpace(authHeader)
	}

	return r.URL.Query().Get("token")
}
