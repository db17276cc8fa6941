package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/BradenHooton/inspireokc/internal/models"
	"github.com/google/uuid"
)

// ObjectStore persists uploaded blobs
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PublicURL(key string) string
}

// UploadRepository records upload metadata
type UploadRepository interface {
	Create(ctx context.Context, upload *models.Upload) (*models.Upload, error)
}

// UploadInput is one photo submitted by a visitor
type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

var extensionByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

// ValidateUpload checks the declared type and size against the allow-list.
func ValidateUpload(in UploadInput) error {
	contentType := normalizeContentType(in.ContentType)
	if !models.AllowedImageTypes[contentType] {
		return fmt.Errorf("%w: unsupported file type %q", models.ErrValidation, in.ContentType)
	}
	if in.Size <= 0 {
		return fmt.Errorf("%w: file is empty", models.ErrValidation)
	}
	if in.Size > models.MaxUploadBytes {
		return fmt.Errorf("%w: file exceeds %d MB", models.ErrValidation, models.MaxUploadBytes>>20)
	}
	if in.Body == nil {
		return fmt.Errorf("%w: missing file body", models.ErrValidation)
	}
	return nil
}

func normalizeContentType(contentType string) string {
	contentType, _, _ = strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(contentType))
}

// UploadService stores visitor photos and records their metadata
type UploadService struct {
	store     ObjectStore
	repo      UploadRepository
	keyPrefix string
	logger    *slog.Logger
}

// NewUploadService creates a new UploadService
func NewUploadService(store ObjectStore, repo UploadRepository, keyPrefix string, logger *slog.Logger) *UploadService {
	return &UploadService{
		store:     store,
		repo:      repo,
		keyPrefix: strings.Trim(keyPrefix, "/"),
		logger:    logger,
	}
}

// Upload validates in, writes the blob and inserts the uploads row.
// Nothing reaches storage when validation fails.
func (s *UploadService) Upload(ctx context.Context, fingerprint string, identity *models.Identity, in UploadInput) (*models.Upload, error) {
	if err := ValidateUpload(in); err != nil {
		return nil, err
	}
	if fingerprint == "" {
		return nil, models.ErrMissingIdentity
	}

	contentType := normalizeContentType(in.ContentType)
	key := path.Join(s.keyPrefix, fingerprint, uuid.NewString()+extensionByType[contentType])

	// Never read past the declared size.
	body := io.LimitReader(in.Body, in.Size)
	if err := s.store.Put(ctx, key, body, in.Size, contentType); err != nil {
		s.logger.Error("failed to store upload",
			slog.String("key", key),
			slog.Any("error", err))
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	upload := &models.Upload{
		FileURL:     s.store.PublicURL(key),
		FileSize:    in.Size,
		ContentType: contentType,
		Fingerprint: fingerprint,
	}
	if identity != nil {
		userID := identity.UserID
		upload.UserID = &userID
	}

	created, err := s.repo.Create(ctx, upload)
	if err != nil {
		return nil, fmt.Errorf("failed to record upload: %w", err)
	}

	s.logger.Info("upload stored",
		slog.String("upload_id", created.ID),
		slog.String("content_type", contentType),
		slog.Int64("size", in.Size))

	return created, nil
}
