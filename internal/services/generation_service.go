package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/inspireokc/internal/models"
	pkglogger "github.com/BradenHooton/inspireokc/pkg/logger"
)

// ImageModel transforms a source photo into a styled cartoon
type ImageModel interface {
	Transform(ctx context.Context, imageURL string, style models.Style) (string, error)
}

// LimitGate is the generation allowance check used before and after a generation
type LimitGate interface {
	CheckLimit(ctx context.Context, fingerprint string, identity *models.Identity) (*models.LimitStatus, error)
	IncrementUsage(ctx context.Context, fingerprint string, identity *models.Identity) (*models.LimitStatus, error)
}

// EventRecorder records analytics events without blocking the caller
type EventRecorder interface {
	Record(ctx context.Context, event *models.Event)
}

// GenerationResult is the outcome of one successful generation
type GenerationResult struct {
	ImageURL string              `json:"imageUrl"`
	Limit    *models.LimitStatus `json:"limit"`
}

// GenerationService runs a gated generation for the /api/generate endpoint
type GenerationService struct {
	gate   LimitGate
	model  ImageModel
	events EventRecorder
	audit  *pkglogger.AuditLogger
	logger *slog.Logger
}

// NewGenerationService creates a new GenerationService
func NewGenerationService(gate LimitGate, model ImageModel, events EventRecorder, audit *pkglogger.AuditLogger, logger *slog.Logger) *GenerationService {
	return &GenerationService{
		gate:   gate,
		model:  model,
		events: events,
		audit:  audit,
		logger: logger,
	}
}

// Generate checks the allowance, calls the model and counts the generation.
// A denied check returns a *models.LimitExceededError.
func (s *GenerationService) Generate(ctx context.Context, fingerprint string, identity *models.Identity, imageURL, styleID string) (*GenerationResult, error) {
	style, ok := models.StyleByID(styleID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownStyle, styleID)
	}

	status, err := s.gate.CheckLimit(ctx, fingerprint, identity)
	if err != nil {
		return nil, err
	}
	if !status.Allowed {
		s.audit.LogGenerationDenied(ctx, fingerprint, status.DailyLimit)
		return nil, &models.LimitExceededError{Status: status}
	}

	s.events.Record(ctx, newGenerationEvent(models.EventGenerateClick, fingerprint, identity, style.ID))

	resultURL, err := s.model.Transform(ctx, imageURL, style)
	if err != nil {
		s.events.Record(ctx, newGenerationEvent(models.EventGenerateFailure, fingerprint, identity, style.ID))
		s.logger.Error("image generation failed",
			slog.String("style", style.ID),
			slog.Any("error", err))
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", models.ErrUpstream, err)
	}

	updated, err := s.gate.IncrementUsage(ctx, fingerprint, identity)
	if err != nil {
		// The image exists; report it even though the counter write failed.
		s.logger.Error("failed to record generation usage",
			slog.String("fingerprint", fingerprint),
			slog.Any("error", err))
		updated = status
	}

	s.events.Record(ctx, newGenerationEvent(models.EventGenerateSuccess, fingerprint, identity, style.ID))
	s.audit.LogGeneration(ctx, fingerprint, style.ID, updated.Remaining)

	return &GenerationResult{ImageURL: resultURL, Limit: updated}, nil
}

func newGenerationEvent(eventType, fingerprint string, identity *models.Identity, styleID string) *models.Event {
	event := &models.Event{
		Type:        eventType,
		Fingerprint: fingerprint,
		Metadata:    map[string]string{"style": styleID},
	}
	if identity != nil {
		userID := identity.UserID
		event.UserID = &userID
	}
	return event
}
