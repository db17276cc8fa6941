package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent represents an auditable action
type AuditEvent struct {
	EventType     string
	ActorID       string
	Fingerprint   string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// Log writes event at Info on success and Warn otherwise
func (al *AuditLogger) Log(ctx context.Context, auditType string, event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", auditType),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.ActorID != "" {
		attrs = append(attrs, slog.String("actor_id", event.ActorID))
	}
	if event.Fingerprint != "" {
		attrs = append(attrs, slog.String("fingerprint", event.Fingerprint))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "audit", attrs...)
}

// LogGeneration logs a completed, counted generation
func (al *AuditLogger) LogGeneration(ctx context.Context, fingerprint, styleID string, remaining int) {
	attrs := []slog.Attr{
		slog.String("audit_type", "generation"),
		slog.String("event_type", "generation_completed"),
		slog.Bool("success", true),
		slog.String("fingerprint", fingerprint),
		slog.String("style", styleID),
		slog.Int("remaining", remaining),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	al.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
}

// LogGenerationDenied logs a generation refused by the daily limit
func (al *AuditLogger) LogGenerationDenied(ctx context.Context, fingerprint string, dailyLimit int) {
	attrs := []slog.Attr{
		slog.String("audit_type", "generation"),
		slog.String("event_type", "generation_limit_reached"),
		slog.Bool("success", false),
		slog.String("fingerprint", fingerprint),
		slog.Int("daily_limit", dailyLimit),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	al.logger.LogAttrs(ctx, slog.LevelWarn, "audit", attrs...)
}

// LogFriendAction logs an allowlist change made by an administrator
func (al *AuditLogger) LogFriendAction(ctx context.Context, eventType, actorID, friendEmail string) {
	al.Log(ctx, "friend", AuditEvent{
		EventType: eventType,
		ActorID:   actorID,
		Success:   true,
		Metadata:  map[string]string{"friend_email": SanitizedEmail(friendEmail)},
	})
}
