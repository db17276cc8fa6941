package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/inspireokc/internal/fingerprint"
	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitByIP_RejectsOverLimit(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 2})(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
		req.RemoteAddr = "192.0.2.10:5000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.Contains(t, rec.Body.String(), `"error":"rate_limit_exceeded"`)
		}
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestRateLimitByFingerprint_KeysPerDevice(t *testing.T) {
	handler := RateLimitByFingerprint(RateLimitConfig{RequestsPerMinute: 1})(okHandler())

	send := func(fp string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/generate", nil)
		req.RemoteAddr = "192.0.2.20:5000"
		req = req.WithContext(fingerprint.NewContext(req.Context(), fp))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// Same IP, different devices
	assert.Equal(t, http.StatusOK, send("aaa-bbb"))
	assert.Equal(t, http.StatusOK, send("ccc-ddd"))
	assert.Equal(t, http.StatusTooManyRequests, send("aaa-bbb"))
}

func TestFingerprintKey_FallsBackToIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.30:5000"

	key, err := fingerprintKey(req)
	assert.NoError(t, err)
	assert.Equal(t, "ip:192.0.2.30", key)
}
