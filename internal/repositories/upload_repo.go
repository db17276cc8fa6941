package repositories

import (
	"context"

	"github.com/BradenHooton/inspireokc/internal/database"
	"github.com/BradenHooton/inspireokc/internal/models"
)

// UploadRepository records upload metadata rows
type UploadRepository struct {
	db *database.DB
}

func NewUploadRepository(db *database.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

// Create inserts an upload row and returns it with its generated id
func (r *UploadRepository) Create(ctx context.Context, upload *models.Upload) (*models.Upload, error) {
	query := `
		INSERT INTO uploads (file_url, file_size, content_type, fingerprint, user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	created := *upload
	err := r.db.Pool.QueryRow(ctx, query,
		upload.FileURL, upload.FileSize, upload.ContentType, upload.Fingerprint, upload.UserID,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &created, nil
}
