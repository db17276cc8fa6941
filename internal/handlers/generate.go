package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/inspireokc/internal/auth"
	"github.com/BradenHooton/inspireokc/internal/fingerprint"
	"github.com/BradenHooton/inspireokc/internal/models"
	"github.com/BradenHooton/inspireokc/internal/services"
	pkghttp "github.com/BradenHooton/inspireokc/pkg/http"
)

// CartoonGenerator runs one gated image transformation
type CartoonGenerator interface {
	Generate(ctx context.Context, fingerprint string, identity *models.Identity, imageURL, styleID string) (*services.GenerationResult, error)
}

// GenerateRequest is the body of POST /api/generate
type GenerateRequest struct {
	ImageURL string `json:"imageUrl" validate:"required,http_url,max=2048"`
	StyleID  string `json:"styleId" validate:"required,max=64"`
}

// GenerateHandler exposes the image generation endpoint
type GenerateHandler struct {
	generator CartoonGenerator
	logger    *slog.Logger
}

// NewGenerateHandler creates a new GenerateHandler
func NewGenerateHandler(generator CartoonGenerator, logger *slog.Logger) *GenerateHandler {
	return &GenerateHandler{generator: generator, logger: logger}
}

// Generate handles POST /api/generate.
// A denied limit check answers 429 with the caller's remaining allowance.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	fp := fingerprint.FromContext(r.Context())
	if fp == "" {
		pkghttp.WriteBadRequest(w, models.ErrMissingIdentity.Error())
		return
	}

	var req GenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.generator.Generate(r.Context(), fp, auth.IdentityFromContext(r.Context()), req.ImageURL, req.StyleID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}
