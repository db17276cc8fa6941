package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/BradenHooton/inspireokc/internal/database"
	"github.com/BradenHooton/inspireokc/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FriendRepository handles the tlc_friends allowlist
type FriendRepository struct {
	pool *pgxpool.Pool
}

func NewFriendRepository(db *database.DB) *FriendRepository {
	return &FriendRepository{pool: db.Pool}
}

const friendColumns = `id, email, name, daily_limit, created_at, updated_at`

func scanFriendRow(scanner rowScanner) (*models.TLCFriend, error) {
	var friend models.TLCFriend
	err := scanner.Scan(
		&friend.ID, &friend.Email, &friend.Name, &friend.DailyLimit,
		&friend.CreatedAt, &friend.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &friend, nil
}

func scanFriendRows(rows pgx.Rows) ([]*models.TLCFriend, error) {
	defer rows.Close()

	friends := make([]*models.TLCFriend, 0)
	for rows.Next() {
		friend, err := scanFriendRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan friend: %w", err)
		}
		friends = append(friends, friend)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return friends, nil
}

// GetByEmail looks up an allowlist entry; emails are stored lowercased
func (r *FriendRepository) GetByEmail(ctx context.Context, email string) (*models.TLCFriend, error) {
	query := `SELECT ` + friendColumns + ` FROM tlc_friends WHERE email = $1`
	return scanFriendRow(r.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))))
}

func (r *FriendRepository) GetByID(ctx context.Context, id string) (*models.TLCFriend, error) {
	query := `SELECT ` + friendColumns + ` FROM tlc_friends WHERE id = $1`
	return scanFriendRow(r.pool.QueryRow(ctx, query, id))
}

func (r *FriendRepository) List(ctx context.Context, limit, offset int) ([]*models.TLCFriend, error) {
	query := `
		SELECT ` + friendColumns + `
		FROM tlc_friends
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return scanFriendRows(rows)
}

func (r *FriendRepository) Create(ctx context.Context, friend *models.TLCFriend) (*models.TLCFriend, error) {
	query := `
		INSERT INTO tlc_friends (email, name, daily_limit)
		VALUES ($1, $2, $3)
		RETURNING ` + friendColumns

	return scanFriendRow(r.pool.QueryRow(ctx, query,
		strings.ToLower(strings.TrimSpace(friend.Email)),
		friend.Name,
		friend.DailyLimit,
	))
}

func (r *FriendRepository) Update(ctx context.Context, id string, friend *models.TLCFriend) (*models.TLCFriend, error) {
	query := `
		UPDATE tlc_friends
		SET name = $2, daily_limit = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING ` + friendColumns

	return scanFriendRow(r.pool.QueryRow(ctx, query, id, friend.Name, friend.DailyLimit))
}

func (r *FriendRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM tlc_friends WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
