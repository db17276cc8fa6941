//go:build integration

package integration

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/BradenHooton/inspireokc/internal/database"
	"github.com/BradenHooton/inspireokc/internal/models"
	"github.com/BradenHooton/inspireokc/internal/repositories"
)

// TestDB manages PostgreSQL testcontainer and database operations
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

// SetupTestDatabase creates a PostgreSQL testcontainer, runs migrations, returns TestDB
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("inspireokc"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Same embedded migrations the server applies with DB_AUTO_MIGRATE
	goose.SetLogger(log.New(io.Discard, "", 0))
	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         database.NewFromPool(pool, slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, nil
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	tables := []string{
		"events",
		"uploads",
		"device_fingerprints",
		"generation_limits",
		"tlc_friends",
		"admin_roles",
	}

	for _, table := range tables {
		if _, err := db.Pool.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return nil
}

// Repositories bundles every repository over one database
type Repositories struct {
	Devices *repositories.DeviceRepository
	Friends *repositories.FriendRepository
	Admins  *repositories.AdminRepository
	Events  *repositories.EventRepository
	Limits  *repositories.GenerationLimitRepository
	Uploads *repositories.UploadRepository
}

// InitializeRepositories creates all repository instances from database wrapper
func InitializeRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Devices: repositories.NewDeviceRepository(db),
		Friends: repositories.NewFriendRepository(db),
		Admins:  repositories.NewAdminRepository(db),
		Events:  repositories.NewEventRepository(db),
		Limits:  repositories.NewGenerationLimitRepository(db),
		Uploads: repositories.NewUploadRepository(db),
	}
}

// SeedFriend inserts an allowlist entry
func SeedFriend(ctx context.Context, repos *Repositories, email, name string, dailyLimit *int) (*models.TLCFriend, error) {
	friend, err := repos.Friends.Create(ctx, &models.TLCFriend{Email: email, Name: name, DailyLimit: dailyLimit})
	if err != nil {
		return nil, fmt.Errorf("failed to insert friend: %w", err)
	}
	return friend, nil
}

// SeedUsage sets the stored counter for a fingerprint on a date
func SeedUsage(ctx context.Context, pool *pgxpool.Pool, fingerprint, date string, count int) error {
	query := `
		INSERT INTO generation_limits (fingerprint, usage_date, count)
		VALUES ($1, $2::date, $3)
		ON CONFLICT (fingerprint, usage_date) DO UPDATE SET count = EXCLUDED.count
	`
	if _, err := pool.Exec(ctx, query, fingerprint, date, count); err != nil {
		return fmt.Errorf("failed to seed usage: %w", err)
	}
	return nil
}

// CountEvents returns how many events of eventType are stored
func CountEvents(ctx context.Context, pool *pgxpool.Pool, eventType string) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM events WHERE event_type = $1`, eventType).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}
