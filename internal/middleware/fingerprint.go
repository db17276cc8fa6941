package middleware

import (
	"log/slog"
	"net/http"

	"github.com/BradenHooton/inspireokc/internal/fingerprint"
	"github.com/google/uuid"
)

// FingerprintHeader carries a fingerprint computed by the browser.
const FingerprintHeader = "X-Fingerprint"

// ResolveFingerprint attaches a device fingerprint to the request context.
//
// A well-formed X-Fingerprint header wins. Otherwise the fingerprint is derived
// from request headers and cached in the caller's anonymous session, so it stays
// stable for the session even if those headers drift.
func ResolveFingerprint(sessions *fingerprint.SessionStore, cookie CookieConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if hash := r.Header.Get(FingerprintHeader); fingerprint.ValidHash(hash) {
				next.ServeHTTP(w, r.WithContext(fingerprint.NewContext(r.Context(), hash)))
				return
			}

			sessionID := sessionIDFromCookie(r, cookie.Name)
			if sessionID == "" {
				sessionID = uuid.New().String()
				setSessionCookie(w, sessionID, cookie)
			}

			cache := fingerprint.NewCache(
				sessions.Storage(sessionID),
				fingerprint.NewGenerator(fingerprint.NewRequestSource(r)),
			)
			fp, err := cache.Get(r.Context())
			if err != nil {
				// Handlers that need a fingerprint reject the request themselves.
				logger.Warn("fingerprint generation failed", slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(fingerprint.NewContext(r.Context(), fp.Hash)))
		})
	}
}
