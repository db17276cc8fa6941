package logger

import (
	"log/slog"
	"strings"
)

// SanitizedEmail masks an address for logs, keeping the first letter and the TLD:
// "pal@example.com" becomes "p**@*******.com".
func SanitizedEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.Contains(domain, "@") {
		return "[invalid-email]"
	}

	masked := local[:1] + strings.Repeat("*", len(local)-1) + "@"

	dot := strings.LastIndex(domain, ".")
	if dot <= 0 {
		return masked + domain
	}
	return masked + maskKeepDots(domain[:dot]) + domain[dot:]
}

func maskKeepDots(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '.' {
			return r
		}
		return '*'
	}, s)
}

// RedactedAttr hides value in production and passes it through elsewhere.
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, "[REDACTED]")
	}
	return slog.String(key, value)
}

// Query keys that may carry credentials, contact details or device identity.
var sensitiveQueryParams = []string{
	"token",
	"secret",
	"key",
	"auth",
	"email",
	"fingerprint",
	"signature",
	"code",
}

// SanitizeQueryString reports whether rawQuery should be dropped from request logs.
func SanitizeQueryString(rawQuery string) bool {
	if rawQuery == "" {
		return false
	}
	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveQueryParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
