package repositories

import (
	"context"

	"github.com/BradenHooton/inspireokc/internal/database"
	"github.com/BradenHooton/inspireokc/internal/models"
)

// DeviceRepository persists device fingerprints for analytics
type DeviceRepository struct {
	db *database.DB
}

func NewDeviceRepository(db *database.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Upsert records a fingerprint, refreshing signals and last_seen_at when it already exists
func (r *DeviceRepository) Upsert(ctx context.Context, fp *models.DeviceFingerprint) (*models.DeviceRecord, error) {
	query := `
		INSERT INTO device_fingerprints (
			fingerprint, screen_resolution, timezone, language, platform, user_agent,
			color_depth, hardware_concurrency, device_memory, touch_support,
			webgl_vendor, webgl_renderer, canvas_hash
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (fingerprint) DO UPDATE SET
			screen_resolution = EXCLUDED.screen_resolution,
			timezone = EXCLUDED.timezone,
			language = EXCLUDED.language,
			platform = EXCLUDED.platform,
			user_agent = EXCLUDED.user_agent,
			color_depth = EXCLUDED.color_depth,
			hardware_concurrency = EXCLUDED.hardware_concurrency,
			device_memory = EXCLUDED.device_memory,
			touch_support = EXCLUDED.touch_support,
			webgl_vendor = EXCLUDED.webgl_vendor,
			webgl_renderer = EXCLUDED.webgl_renderer,
			canvas_hash = EXCLUDED.canvas_hash,
			last_seen_at = CURRENT_TIMESTAMP
		RETURNING id, first_seen_at, last_seen_at
	`

	s := fp.DeviceSignals
	record := &models.DeviceRecord{Fingerprint: *fp}
	err := r.db.Pool.QueryRow(ctx, query,
		fp.Hash, s.ScreenResolution, s.Timezone, s.Language, s.Platform, s.UserAgent,
		s.ColorDepth, s.HardwareConcurrency, s.DeviceMemory, s.TouchSupport,
		s.GPUVendor, s.GPURenderer, s.CanvasHash,
	).Scan(&record.ID, &record.FirstSeenAt, &record.LastSeenAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return record, nil
}
