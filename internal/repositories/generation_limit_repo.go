package repositories

import (
	"context"
	"time"

	"github.com/BradenHooton/inspireokc/internal/database"
	"github.com/BradenHooton/inspireokc/internal/models"
)

// GenerationLimitRepository handles the per-(fingerprint, date) usage counters
type GenerationLimitRepository struct {
	db *database.DB
}

// NewGenerationLimitRepository creates a new GenerationLimitRepository
func NewGenerationLimitRepository(db *database.DB) *GenerationLimitRepository {
	return &GenerationLimitRepository{db: db}
}

const generationLimitColumns = `id, fingerprint, usage_date, count, is_friend, created_at, updated_at`

func scanGenerationLimit(scanner rowScanner) (*models.GenerationLimit, error) {
	var limit models.GenerationLimit
	var usageDate time.Time

	err := scanner.Scan(
		&limit.ID, &limit.Fingerprint, &usageDate, &limit.Count,
		&limit.IsFriend, &limit.CreatedAt, &limit.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	limit.Date = usageDate.Format(models.DateLayout)
	return &limit, nil
}

// GetForDate returns the counter for fingerprint on date, or models.ErrNotFound
func (r *GenerationLimitRepository) GetForDate(ctx context.Context, fingerprint, date string) (*models.GenerationLimit, error) {
	query := `
		SELECT ` + generationLimitColumns + `
		FROM generation_limits
		WHERE fingerprint = $1 AND usage_date = $2::date
	`

	return scanGenerationLimit(r.db.Pool.QueryRow(ctx, query, fingerprint, date))
}

// IncrementForDate atomically creates the counter at 1 or adds 1 to it.
// The arithmetic happens in the database so concurrent callers never lose an update.
func (r *GenerationLimitRepository) IncrementForDate(ctx context.Context, fingerprint, date string, isFriend bool) (*models.GenerationLimit, error) {
	query := `
		INSERT INTO generation_limits (fingerprint, usage_date, count, is_friend)
		VALUES ($1, $2::date, 1, $3)
		ON CONFLICT (fingerprint, usage_date)
		DO UPDATE SET count = generation_limits.count + 1,
		              is_friend = EXCLUDED.is_friend,
		              updated_at = CURRENT_TIMESTAMP
		RETURNING ` + generationLimitColumns

	return scanGenerationLimit(r.db.Pool.QueryRow(ctx, query, fingerprint, date, isFriend))
}

// DeleteBefore removes counters dated strictly before date
func (r *GenerationLimitRepository) DeleteBefore(ctx context.Context, date string) (int64, error) {
	query := `DELETE FROM generation_limits WHERE usage_date < $1::date`

	result, err := r.db.Pool.Exec(ctx, query, date)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
