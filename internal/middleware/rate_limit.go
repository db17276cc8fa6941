package middleware

import (
	"net/http"
	"time"

	"github.com/BradenHooton/inspireokc/internal/fingerprint"
	pkghttp "github.com/BradenHooton/inspireokc/pkg/http"
	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(writeRateLimited),
	)
}

// RateLimitByFingerprint rate limits per device fingerprint, falling back to
// the client IP when no fingerprint was resolved. Must run after ResolveFingerprint.
func RateLimitByFingerprint(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(fingerprintKey),
		httprate.WithLimitHandler(writeRateLimited),
	)
}

func fingerprintKey(r *http.Request) (string, error) {
	if fp := fingerprint.FromContext(r.Context()); fp != "" {
		return "fp:" + fp, nil
	}
	ip, err := httprate.KeyByRealIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + ip, nil
}

func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteTooManyRequests(w, "rate limit exceeded, slow down")
}
