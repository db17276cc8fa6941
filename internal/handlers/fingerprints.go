package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/inspireokc/internal/fingerprint"
	"github.com/BradenHooton/inspireokc/internal/models"
	pkghttp "github.com/BradenHooton/inspireokc/pkg/http"
)

// DeviceStore persists fingerprints for analytics
type DeviceStore interface {
	Upsert(ctx context.Context, fp *models.DeviceFingerprint) (*models.DeviceRecord, error)
}

// FingerprintResponse is returned after registering a device
type FingerprintResponse struct {
	Fingerprint string    `json:"fingerprint"`
	FirstSeenAt time.Time `json:"firstSeenAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
}

// FingerprintHandler registers device signal tuples
type FingerprintHandler struct {
	devices DeviceStore
	logger  *slog.Logger
}

// NewFingerprintHandler creates a new FingerprintHandler
func NewFingerprintHandler(devices DeviceStore, logger *slog.Logger) *FingerprintHandler {
	return &FingerprintHandler{devices: devices, logger: logger}
}

// Register handles POST /api/fingerprints.
// The hash is recomputed from the submitted signals, so the result matches
// what the browser derived for the same tuple.
func (h *FingerprintHandler) Register(w http.ResponseWriter, r *http.Request) {
	var signals models.DeviceSignals
	if err := decodeJSON(w, r, &signals); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(&signals); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if signals.CanvasHash == "" {
		signals.CanvasHash = fingerprint.CanvasUnavailable
	}
	if signals.GPUVendor == "" {
		signals.GPUVendor = fingerprint.GPUUnknown
	}
	if signals.GPURenderer == "" {
		signals.GPURenderer = fingerprint.GPUUnknown
	}

	fp := fingerprint.Derive(signals)
	record, err := h.devices.Upsert(r.Context(), fp)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, FingerprintResponse{
		Fingerprint: record.Fingerprint.Hash,
		FirstSeenAt: record.FirstSeenAt,
		LastSeenAt:  record.LastSeenAt,
	})
}
