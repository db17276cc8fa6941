package models

import "time"

// DeviceSignals are the raw browser/device signals a fingerprint is derived from.
type DeviceSignals struct {
	ScreenResolution    string   `json:"screenResolution" validate:"max=32"`
	Timezone            string   `json:"timezone" validate:"max=64"`
	Language            string   `json:"language" validate:"max=64"`
	Platform            string   `json:"platform" validate:"max=64"`
	UserAgent           string   `json:"userAgent" validate:"required,max=1024"`
	ColorDepth          int      `json:"colorDepth" validate:"gte=0,lte=64"`
	HardwareConcurrency int      `json:"hardwareConcurrency" validate:"gte=0,lte=1024"`
	DeviceMemory        *float64 `json:"deviceMemory,omitempty" validate:"omitempty,gte=0"`
	TouchSupport        bool     `json:"touchSupport"`
	GPUVendor           string   `json:"webglVendor" validate:"max=256"`
	GPURenderer         string   `json:"webglRenderer" validate:"max=256"`
	CanvasHash          string   `json:"canvasHash" validate:"max=64"`
}

// DeviceFingerprint is a derived pseudo-identity plus the signals behind it.
type DeviceFingerprint struct {
	Hash string `json:"fingerprint"`
	DeviceSignals
}

// DeviceRecord is the persisted analytics row for a fingerprint.
type DeviceRecord struct {
	ID          string
	Fingerprint DeviceFingerprint
	FirstSeenAt time.Time
	LastSeenAt  time.Time
}
