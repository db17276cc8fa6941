package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BradenHooton/inspireokc/internal/models"
	pkghttp "github.com/BradenHooton/inspireokc/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// IdentityContextKey is the key for storing the caller identity in context
	IdentityContextKey contextKey = "identity"
)

// AdminLookup checks administrator role grants
type AdminLookup interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// OptionalAuth attaches the caller identity when a bearer token is present.
// Requests without a token continue anonymously; a present but invalid token is rejected.
func OptionalAuth(tm *TokenManager) func(next http.Handler) http.Handler {
	return authenticate(tm, false)
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth(tm *TokenManager) func(next http.Handler) http.Handler {
	return authenticate(tm, true)
}

func authenticate(tm *TokenManager, required bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				if required {
					pkghttp.WriteUnauthorized(w, "missing authorization header")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
				pkghttp.WriteUnauthorized(w, "invalid authorization header format")
				return
			}

			claims, err := tm.ValidateToken(parts[1])
			if err != nil {
				pkghttp.WriteUnauthorized(w, "invalid or expired token")
				return
			}

			identity := models.IdentityFromClaims(claims)
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireAdmin allows only identities holding an administrator grant.
// Must run after RequireAuth.
func RequireAdmin(admins AdminLookup, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := IdentityFromContext(r.Context())
			if identity == nil {
				pkghttp.WriteUnauthorized(w, "authentication required")
				return
			}

			isAdmin, err := admins.IsAdmin(r.Context(), identity.UserID)
			if err != nil {
				logger.Error("admin lookup failed",
					slog.String("user_id", identity.UserID),
					slog.Any("error", err))
				pkghttp.WriteInternalError(w, "internal server error")
				return
			}
			if !isAdmin {
				pkghttp.WriteForbidden(w, "forbidden: insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity returns a copy of ctx carrying identity
func WithIdentity(ctx context.Context, identity *models.Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, identity)
}

// IdentityFromContext extracts the caller identity, or nil for anonymous callers
func IdentityFromContext(ctx context.Context) *models.Identity {
	identity, ok := ctx.Value(IdentityContextKey).(*models.Identity)
	if !ok {
		return nil
	}
	return identity
}
