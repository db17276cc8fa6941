package repositories

import (
	"context"
	"time"

	"github.com/BradenHooton/inspireokc/internal/database"
	"github.com/BradenHooton/inspireokc/internal/models"
)

// EventRepository stores analytics events
type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Insert writes one event row
func (r *EventRepository) Insert(ctx context.Context, event *models.Event) error {
	metadata := event.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO events (event_type, fingerprint, user_id, page, metadata, ip_hash)
		VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), $5, NULLIF($6, ''))
	`, event.Type, event.Fingerprint, event.UserID, event.Page, metadata, event.IPHash)
	return err
}

// DeleteBefore removes events created before cutoff
func (r *EventRepository) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM events WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
