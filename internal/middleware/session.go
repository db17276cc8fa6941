package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// CookieConfig holds session cookie settings
type CookieConfig struct {
	Name     string
	Domain   string // Empty string = current host only
	Secure   bool   // HTTPS only
	SameSite string // "strict", "lax", or "none"
	MaxAge   int
}

// setSessionCookie issues the anonymous session cookie
func setSessionCookie(w http.ResponseWriter, sessionID string, config CookieConfig) {
	cookie := &http.Cookie{
		Name:     config.Name,
		Value:    sessionID,
		Path:     "/",
		Domain:   config.Domain,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: parseSameSite(config.SameSite),
	}
	if config.MaxAge > 0 {
		cookie.MaxAge = config.MaxAge
		cookie.Expires = time.Now().Add(time.Duration(config.MaxAge) * time.Second)
	}
	http.SetCookie(w, cookie)
}

// sessionIDFromCookie returns the session id, or "" when absent or malformed
func sessionIDFromCookie(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(cookie.Value); err != nil {
		return ""
	}
	return cookie.Value
}

// parseSameSite converts string to http.SameSite constant
func parseSameSite(sameSite string) http.SameSite {
	switch sameSite {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteDefaultMode
	}
}
