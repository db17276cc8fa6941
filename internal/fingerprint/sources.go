package fingerprint

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/BradenHooton/inspireokc/internal/models"
)

// ErrSignalUnavailable is returned by sources that cannot provide a signal.
var ErrSignalUnavailable = errors.New("signal unavailable")

// StaticSource returns fixed signals. It backs tests and non-browser clients.
type StaticSource struct {
	Signals     models.DeviceSignals
	Canvas      string
	CanvasErr   error
	Vendor      string
	Renderer    string
	GPUErr      error
	CollectErr  error
	CollectHits int
}

func (s *StaticSource) Collect(ctx context.Context) (models.DeviceSignals, error) {
	s.CollectHits++
	if s.CollectErr != nil {
		return models.DeviceSignals{}, s.CollectErr
	}
	return s.Signals, nil
}

func (s *StaticSource) CanvasData(ctx context.Context) (string, error) {
	if s.CanvasErr != nil {
		return "", s.CanvasErr
	}
	return s.Canvas, nil
}

func (s *StaticSource) GPUInfo(ctx context.Context) (string, string, error) {
	if s.GPUErr != nil {
		return "", "", s.GPUErr
	}
	return s.Vendor, s.Renderer, nil
}

// Client hint headers a browser can send in place of direct introspection.
const (
	HeaderScreenResolution    = "X-Screen-Resolution"
	HeaderTimezone            = "X-Timezone"
	HeaderPlatform            = "Sec-CH-UA-Platform"
	HeaderColorDepth          = "X-Color-Depth"
	HeaderHardwareConcurrency = "X-Hardware-Concurrency"
	HeaderDeviceMemory        = "X-Device-Memory"
	HeaderTouchSupport        = "X-Touch-Support"
	HeaderGPUVendor           = "X-GPU-Vendor"
	HeaderGPURenderer         = "X-GPU-Renderer"
	HeaderCanvasData          = "X-Canvas-Data"
)

// RequestSource derives signals from the headers of an HTTP request.
type RequestSource struct {
	header http.Header
}

// NewRequestSource creates a RequestSource for r.
func NewRequestSource(r *http.Request) *RequestSource {
	return &RequestSource{header: r.Header}
}

func (s *RequestSource) Collect(ctx context.Context) (models.DeviceSignals, error) {
	signals := models.DeviceSignals{
		ScreenResolution:    s.header.Get(HeaderScreenResolution),
		Timezone:            s.header.Get(HeaderTimezone),
		Language:            primaryLanguage(s.header.Get("Accept-Language")),
		Platform:            strings.Trim(s.header.Get(HeaderPlatform), `"`),
		UserAgent:           s.header.Get("User-Agent"),
		ColorDepth:          atoi(s.header.Get(HeaderColorDepth)),
		HardwareConcurrency: atoi(s.header.Get(HeaderHardwareConcurrency)),
		TouchSupport:        s.header.Get(HeaderTouchSupport) == "true" || s.header.Get(HeaderTouchSupport) == "1",
	}
	if v := s.header.Get(HeaderDeviceMemory); v != "" {
		if mem, err := strconv.ParseFloat(v, 64); err == nil {
			signals.DeviceMemory = &mem
		}
	}
	return signals, nil
}

func (s *RequestSource) CanvasData(ctx context.Context) (string, error) {
	v := s.header.Get(HeaderCanvasData)
	if v == "" {
		return "", ErrSignalUnavailable
	}
	return v, nil
}

func (s *RequestSource) GPUInfo(ctx context.Context) (string, string, error) {
	vendor := s.header.Get(HeaderGPUVendor)
	renderer := s.header.Get(HeaderGPURenderer)
	if vendor == "" && renderer == "" {
		return "", "", ErrSignalUnavailable
	}
	return vendor, renderer, nil
}

// primaryLanguage returns the first tag of an Accept-Language value.
func primaryLanguage(accept string) string {
	if accept == "" {
		return ""
	}
	first := strings.Split(accept, ",")[0]
	return strings.TrimSpace(strings.Split(first, ";")[0])
}

func atoi(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
