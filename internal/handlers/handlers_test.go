package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/inspireokc/internal/fingerprint"
	"github.com/BradenHooton/inspireokc/internal/handlers"
	"github.com/BradenHooton/inspireokc/internal/models"
	pkghttp "github.com/BradenHooton/inspireokc/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLimits(t *testing.T) {
	checker := &handlers.MockLimitChecker{
		CheckLimitFunc: func(ctx context.Context, fp string, identity *models.Identity) (*models.LimitStatus, error) {
			if identity != nil {
				return &models.LimitStatus{Allowed: true, Remaining: 7, DailyLimit: 10, IsFriend: true, Fingerprint: fp}, nil
			}
			return &models.LimitStatus{Allowed: false, Remaining: 0, DailyLimit: 1, Fingerprint: fp}, nil
		},
	}
	handler := handlers.NewLimitHandler(checker, discardLogger())

	req := handlers.WithFingerprint(httptest.NewRequest(http.MethodGet, "/api/limits", nil), testFingerprint)
	w := httptest.NewRecorder()
	handler.GetLimits(w, handlers.WithIdentityContext(req, "user-1", "pal@example.com"))

	var status models.LimitStatus
	handlers.AssertJSONResponse(t, w, http.StatusOK, &status)
	assert.True(t, status.Allowed)
	assert.Equal(t, 7, status.Remaining)
	assert.True(t, status.IsFriend)
	assert.Equal(t, testFingerprint, status.Fingerprint)
}

func TestGetLimits_FailsClosed(t *testing.T) {
	checker := &handlers.MockLimitChecker{
		CheckLimitFunc: func(ctx context.Context, fp string, identity *models.Identity) (*models.LimitStatus, error) {
			return nil, errors.New("connection reset")
		},
	}
	handler := handlers.NewLimitHandler(checker, discardLogger())

	w := httptest.NewRecorder()
	handler.GetLimits(w, handlers.WithFingerprint(httptest.NewRequest(http.MethodGet, "/api/limits", nil), testFingerprint))

	handlers.AssertErrorResponse(t, w, http.StatusInternalServerError, "internal_error")
}

func TestRegisterFingerprint_MatchesGenerator(t *testing.T) {
	signals := models.DeviceSignals{
		ScreenResolution:    "390x844",
		Timezone:            "America/Chicago",
		Language:            "en-US",
		Platform:            "iPhone",
		UserAgent:           "Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X)",
		ColorDepth:          24,
		HardwareConcurrency: 6,
		TouchSupport:        true,
	}

	seen := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)
	var stored *models.DeviceFingerprint
	devices := &handlers.MockDeviceStore{
		UpsertFunc: func(ctx context.Context, fp *models.DeviceFingerprint) (*models.DeviceRecord, error) {
			stored = fp
			return &models.DeviceRecord{ID: "d1", Fingerprint: *fp, FirstSeenAt: seen, LastSeenAt: seen}, nil
		},
	}
	handler := handlers.NewFingerprintHandler(devices, discardLogger())

	w := httptest.NewRecorder()
	handler.Register(w, handlers.NewTestRequest(t, http.MethodPost, "/api/fingerprints", signals))

	var resp handlers.FingerprintResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)

	// A browser that could not read canvas or GPU info derives the same hash
	source := &fingerprint.StaticSource{Signals: signals, CanvasErr: errors.New("blocked"), GPUErr: errors.New("no webgl")}
	want, err := fingerprint.NewGenerator(source).Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, want.Hash, resp.Fingerprint)
	require.NotNil(t, stored)
	assert.Equal(t, fingerprint.CanvasUnavailable, stored.CanvasHash)
	assert.True(t, resp.LastSeenAt.Equal(seen))
}

func TestRegisterFingerprint_RequiresUserAgent(t *testing.T) {
	handler := handlers.NewFingerprintHandler(&handlers.MockDeviceStore{}, discardLogger())

	w := httptest.NewRecorder()
	handler.Register(w, handlers.NewTestRequest(t, http.MethodPost, "/api/fingerprints", models.DeviceSignals{Timezone: "UTC"}))

	handlers.AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
}

func TestTrackEvent(t *testing.T) {
	sink := &handlers.MockEventSink{}
	handler := handlers.NewEventHandler(sink, &pkghttp.IPConfig{}, discardLogger())

	req := handlers.NewTestRequest(t, http.MethodPost, "/api/events", handlers.EventRequest{
		Type:     "view",
		Page:     "teefeeme",
		Metadata: map[string]string{"referrer": "instagram"},
	})
	req.RemoteAddr = "203.0.113.9:4000"
	req = handlers.WithFingerprint(req, testFingerprint)
	req = handlers.WithIdentityContext(req, "user-1", "")
	w := httptest.NewRecorder()
	handler.Track(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	events := sink.Recorded()
	require.Len(t, events, 1)
	assert.Equal(t, models.EventPageView, events[0].Type)
	assert.Equal(t, testFingerprint, events[0].Fingerprint)
	assert.Equal(t, "hashed:203.0.113.9", events[0].IPHash)
	require.NotNil(t, events[0].UserID)
	assert.Equal(t, "user-1", *events[0].UserID)
}

func TestTrackEvent_AlwaysAccepted(t *testing.T) {
	sink := &handlers.MockEventSink{}
	handler := handlers.NewEventHandler(sink, nil, discardLogger())

	bodies := []interface{}{
		map[string]string{"type": "generate_success"}, // server-only type
		map[string]string{"nonsense": "x"},
		nil,
	}
	for _, body := range bodies {
		w := httptest.NewRecorder()
		handler.Track(w, handlers.NewTestRequest(t, http.MethodPost, "/api/events", body))
		assert.Equal(t, http.StatusAccepted, w.Code)
	}
	assert.Empty(t, sink.Recorded())
}
