// Package fingerprint derives a stable pseudo-identity for anonymous devices.
//
// Signal collection is environment specific, so it sits behind SignalSource.
// Generator only combines and hashes; Cache keeps one result per browsing
// session.
package fingerprint

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/BradenHooton/inspireokc/internal/models"
)

const (
	// CanvasUnavailable replaces the canvas hash when rendering fails.
	CanvasUnavailable = "canvas-unavailable"
	// GPUUnknown replaces a vendor or renderer string that cannot be read.
	GPUUnknown = "unknown"

	signalDelimiter = "|||"
)

// SignalSource exposes the device introspection a fingerprint needs.
type SignalSource interface {
	// Collect returns the plain signals. Canvas and GPU fields are ignored.
	Collect(ctx context.Context) (models.DeviceSignals, error)
	// CanvasData returns the encoded pixels of the fixed probe rendering.
	CanvasData(ctx context.Context) (string, error)
	// GPUInfo returns the unmasked vendor and renderer strings.
	GPUInfo(ctx context.Context) (vendor, renderer string, err error)
}

// Generator turns collected signals into a DeviceFingerprint.
type Generator struct {
	source SignalSource
}

// NewGenerator creates a Generator reading from source.
func NewGenerator(source SignalSource) *Generator {
	return &Generator{source: source}
}

// Generate collects signals and computes the composite hash.
func (g *Generator) Generate(ctx context.Context) (*models.DeviceFingerprint, error) {
	signals, err := g.source.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect device signals: %w", err)
	}

	signals.CanvasHash = CanvasUnavailable
	if data, err := g.source.CanvasData(ctx); err == nil {
		signals.CanvasHash = Hash(data)
	}

	vendor, renderer, err := g.source.GPUInfo(ctx)
	if err != nil {
		vendor, renderer = GPUUnknown, GPUUnknown
	}
	if vendor == "" {
		vendor = GPUUnknown
	}
	if renderer == "" {
		renderer = GPUUnknown
	}
	signals.GPUVendor = vendor
	signals.GPURenderer = renderer

	return Derive(signals), nil
}

// Derive computes the fingerprint of an already complete signal tuple.
// It is a pure function of its input.
func Derive(signals models.DeviceSignals) *models.DeviceFingerprint {
	combined := strings.Join(signalParts(signals), signalDelimiter)
	return &models.DeviceFingerprint{
		Hash:          Hash(combined) + "-" + Hash(signals.UserAgent),
		DeviceSignals: signals,
	}
}

func signalParts(s models.DeviceSignals) []string {
	memory := ""
	if s.DeviceMemory != nil {
		memory = strconv.FormatFloat(*s.DeviceMemory, 'f', -1, 64)
	}
	return []string{
		s.ScreenResolution,
		s.Timezone,
		s.Language,
		s.Platform,
		s.UserAgent,
		strconv.Itoa(s.ColorDepth),
		strconv.Itoa(s.HardwareConcurrency),
		memory,
		strconv.FormatBool(s.TouchSupport),
		s.CanvasHash,
		s.GPUVendor,
		s.GPURenderer,
	}
}
