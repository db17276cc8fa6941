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

// LimitChecker reports the caller's daily generation allowance
type LimitChecker interface {
	CheckLimit(ctx context.Context, fingerprint string, identity *models.Identity) (*models.LimitStatus, error)
}

// LimitHandler serves the limit pre-check used by the UI before offering "Generate"
type LimitHandler struct {
	limits LimitChecker
	logger *slog.Logger
}

// NewLimitHandler creates a new LimitHandler
func NewLimitHandler(limits LimitChecker, logger *slog.Logger) *LimitHandler {
	return &LimitHandler{limits: limits, logger: logger}
}

// GetLimits handles GET /api/limits
func (h *LimitHandler) GetLimits(w http.ResponseWriter, r *http.Request) {
	fp := fingerprint.FromContext(r.Context())
	if fp == "" {
		pkghttp.WriteBadRequest(w, models.ErrMissingIdentity.Error())
		return
	}

	status, err := h.limits.CheckLimit(r.Context(), fp, auth.IdentityFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, status)
}
