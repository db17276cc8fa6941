package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/inspireokc/internal/auth"
	"github.com/BradenHooton/inspireokc/internal/fingerprint"
	"github.com/BradenHooton/inspireokc/internal/models"
	pkghttp "github.com/BradenHooton/inspireokc/pkg/http"
)

// EventSink records analytics events without blocking the caller
type EventSink interface {
	Record(ctx context.Context, event *models.Event)
	HashIP(ip string) string
}

// EventRequest is the body of POST /api/events
type EventRequest struct {
	Type     string            `json:"type" validate:"required,oneof=view click upload"`
	Page     string            `json:"page" validate:"max=128"`
	Metadata map[string]string `json:"metadata" validate:"max=20,dive,keys,max=64,endkeys,max=512"`
}

// EventHandler accepts client-side analytics
type EventHandler struct {
	events   EventSink
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(events EventSink, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *EventHandler {
	return &EventHandler{events: events, ipConfig: ipConfig, logger: logger}
}

// Track handles POST /api/events.
// Analytics are best effort: the response is always 202, even for events it drops.
func (h *EventHandler) Track(w http.ResponseWriter, r *http.Request) {
	defer pkghttp.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})

	var req EventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Debug("dropping malformed event", slog.Any("error", err))
		return
	}
	if err := ValidateRequest(&req); err != nil {
		h.logger.Debug("dropping invalid event", slog.Any("error", err))
		return
	}

	event := &models.Event{
		Type:        req.Type,
		Fingerprint: fingerprint.FromContext(r.Context()),
		Page:        req.Page,
		Metadata:    req.Metadata,
		IPHash:      h.events.HashIP(pkghttp.ExtractClientIP(r, h.ipConfig)),
	}
	if identity := auth.IdentityFromContext(r.Context()); identity != nil {
		userID := identity.UserID
		event.UserID = &userID
	}

	h.events.Record(r.Context(), event)
}
