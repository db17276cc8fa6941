package repositories

import (
	"context"

	"github.com/BradenHooton/inspireokc/internal/database"
)

// AdminRepository looks up administrator role grants by user id
type AdminRepository struct {
	db *database.DB
}

func NewAdminRepository(db *database.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// IsAdmin reports whether userID holds the administrator role
func (r *AdminRepository) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM admin_roles WHERE user_id = $1)`, userID,
	).Scan(&exists)
	return exists, err
}

// Grant gives userID the administrator role; granting twice is a no-op
func (r *AdminRepository) Grant(ctx context.Context, userID, grantedBy string) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO admin_roles (user_id, granted_by)
		VALUES ($1, NULLIF($2, ''))
		ON CONFLICT (user_id) DO NOTHING
	`, userID, grantedBy)
	return err
}
