package handlers

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/BradenHooton/inspireokc/internal/auth"
	"github.com/BradenHooton/inspireokc/internal/cartoon"
	"github.com/BradenHooton/inspireokc/internal/fingerprint"
	"github.com/BradenHooton/inspireokc/internal/models"
	"github.com/BradenHooton/inspireokc/internal/services"
	pkghttp "github.com/BradenHooton/inspireokc/pkg/http"
	"github.com/go-chi/chi/v5"
)

// uploadFormOverhead covers multipart boundaries and headers around the photo
const uploadFormOverhead = 1 << 20

// CartoonOrchestrator drives the upload, style and generation flow
type CartoonOrchestrator interface {
	Start(fingerprint string, identity *models.Identity) *cartoon.Session
	Get(id string) (*cartoon.Session, error)
	Upload(ctx context.Context, id string, in services.UploadInput) (*cartoon.Session, error)
	SelectStyle(id, styleID string) (*cartoon.Session, error)
	StartGeneration(ctx context.Context, id string) (*cartoon.Session, error)
	TryAnotherStyle(id string) (*cartoon.Session, error)
	NewPhoto(id string) (*cartoon.Session, error)
}

// SelectStyleRequest is the body of PUT /api/cartoons/{id}/style
type SelectStyleRequest struct {
	StyleID string `json:"styleId" validate:"required,max=64"`
}

// ResetRequest is the body of POST /api/cartoons/{id}/reset
type ResetRequest struct {
	To string `json:"to" validate:"required,oneof=style upload"`
}

// StylesResponse lists the style catalog
type StylesResponse struct {
	Styles []models.Style `json:"styles"`
}

// CartoonHandler exposes the cartoon session flow
type CartoonHandler struct {
	cartoons CartoonOrchestrator
	logger   *slog.Logger
}

// NewCartoonHandler creates a new CartoonHandler
func NewCartoonHandler(cartoons CartoonOrchestrator, logger *slog.Logger) *CartoonHandler {
	return &CartoonHandler{cartoons: cartoons, logger: logger}
}

// ListStyles handles GET /api/styles
func (h *CartoonHandler) ListStyles(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteJSON(w, http.StatusOK, StylesResponse{Styles: models.Styles()})
}

// Create handles POST /api/cartoons
func (h *CartoonHandler) Create(w http.ResponseWriter, r *http.Request) {
	fp := fingerprint.FromContext(r.Context())
	if fp == "" {
		pkghttp.WriteBadRequest(w, models.ErrMissingIdentity.Error())
		return
	}

	session := h.cartoons.Start(fp, auth.IdentityFromContext(r.Context()))
	pkghttp.WriteJSON(w, http.StatusCreated, session)
}

// Get handles GET /api/cartoons/{id}; clients poll it while generating
func (h *CartoonHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, session)
}

// Upload handles POST /api/cartoons/{id}/upload (multipart field "photo")
func (h *CartoonHandler) Upload(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, models.MaxUploadBytes+uploadFormOverhead)
	file, header, err := r.FormFile("photo")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			pkghttp.WritePayloadTooLarge(w, "photo must be 10 MB or smaller")
			return
		}
		pkghttp.WriteBadRequest(w, "multipart field \"photo\" is required")
		return
	}
	defer file.Close()

	updated, err := h.cartoons.Upload(r.Context(), session.ID, uploadInput(header, file))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, updated)
}

// SelectStyle handles PUT /api/cartoons/{id}/style
func (h *CartoonHandler) SelectStyle(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	var req SelectStyleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	updated, err := h.cartoons.SelectStyle(session.ID, req.StyleID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, updated)
}

// Generate handles POST /api/cartoons/{id}/generate.
// It answers 202 once generation is running; poll Get for progress and the result.
func (h *CartoonHandler) Generate(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	started, err := h.cartoons.StartGeneration(r.Context(), session.ID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusAccepted, started)
}

// Reset handles POST /api/cartoons/{id}/reset
func (h *CartoonHandler) Reset(w http.ResponseWriter, r *http.Request) {
	session, ok := h.ownedSession(w, r)
	if !ok {
		return
	}

	var req ResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	var updated *cartoon.Session
	var err error
	if req.To == "style" {
		updated, err = h.cartoons.TryAnotherStyle(session.ID)
	} else {
		updated, err = h.cartoons.NewPhoto(session.ID)
	}
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, updated)
}

// ownedSession loads the session named in the URL. Sessions belonging to a
// different fingerprint are reported as missing.
func (h *CartoonHandler) ownedSession(w http.ResponseWriter, r *http.Request) (*cartoon.Session, bool) {
	session, err := h.cartoons.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return nil, false
	}
	if fp := fingerprint.FromContext(r.Context()); fp == "" || fp != session.Fingerprint {
		pkghttp.WriteNotFound(w, "cartoon session not found")
		return nil, false
	}
	return session, true
}

func uploadInput(header *multipart.FileHeader, file multipart.File) services.UploadInput {
	return services.UploadInput{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
}
