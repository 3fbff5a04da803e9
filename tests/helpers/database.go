package helpers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/bizmatters/agent-builder/travel-planner/internal/models"
	"github.com/bizmatters/agent-builder/travel-planner/internal/orchestration"
)

// GetTestDatabasePool creates a database connection pool for testing
func GetTestDatabasePool(ctx context.Context) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(buildDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// buildDatabaseURL prefers TEST_DATABASE_URL and otherwise assembles one from POSTGRES_* variables.
func buildDatabaseURL() string {
	if url := os.Getenv("TEST_DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("POSTGRES_HOST", "localhost")
	port := getEnv("POSTGRES_PORT", "5432")
	user := getEnv("POSTGRES_USER", "postgres")
	password := getEnv("POSTGRES_PASSWORD", "postgres")
	dbname := getEnv("POSTGRES_DB", "travel_planner_test")

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		user, password, host, port, dbname)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// TestDatabase provides database utilities for testing
type TestDatabase struct {
	Pool  *pgxpool.Pool
	Store *orchestration.PostgresStore
	ctx   context.Context
}

// NewTestDatabase connects to the test database and applies the schema.
// The test is skipped when no database is reachable.
func NewTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	ctx := context.Background()

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := GetTestDatabasePool(waitCtx)
	if err != nil {
		t.Skipf("Skipping: test database unavailable: %v", err)
	}

	db := &TestDatabase{
		Pool:  pool,
		Store: orchestration.NewPostgresStore(pool),
		ctx:   ctx,
	}
	db.ApplyMigrations(t)
	return db
}

// Close closes the database connection
func (db *TestDatabase) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// ApplyMigrations runs the up migrations. They are idempotent.
func (db *TestDatabase) ApplyMigrations(t *testing.T) {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(migrationsDir(), "*.up.sql"))
	if err != nil || len(files) == 0 {
		t.Fatalf("Failed to find migrations in %s: %v", migrationsDir(), err)
	}

	for _, file := range files {
		sql, err := os.ReadFile(file)
		if err != nil {
			t.Fatalf("Failed to read migration %s: %v", file, err)
		}
		if _, err := db.Pool.Exec(db.ctx, string(sql)); err != nil {
			t.Fatalf("Failed to apply migration %s: %v", file, err)
		}
	}
}

func migrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "migrations")
}

// CreateTestUser stores a user with a bcrypt-hashed password and removes it
// (and its runs) when the test ends.
func (db *TestDatabase) CreateTestUser(t *testing.T, email, password string) *models.User {
	t.Helper()

	hashed, err := db.HashPassword(password)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	user := &models.User{Name: "Test User", Email: email, HashedPassword: hashed}
	if err := db.Store.CreateUser(db.ctx, user); err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	t.Cleanup(func() {
		if _, err := db.Pool.Exec(context.Background(), "DELETE FROM users WHERE id = $1", user.ID); err != nil {
			t.Logf("Warning: Failed to delete test user %s: %v", user.ID, err)
		}
	})
	return user
}

// GetRunCount returns the number of runs owned by a user.
func (db *TestDatabase) GetRunCount(t *testing.T, userID string) int {
	t.Helper()
	var count int
	err := db.Pool.QueryRow(db.ctx, "SELECT COUNT(*) FROM trip_runs WHERE user_id = $1", userID).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to get run count: %v", err)
	}
	return count
}

// HashPassword hashes a password using bcrypt for testing
func (db *TestDatabase) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// WaitForDatabase waits for database to be ready
func WaitForDatabase(ctx context.Context, maxAttempts int) error {
	for i := 0; i < maxAttempts; i++ {
		pool, err := GetTestDatabasePool(ctx)
		if err == nil {
			pool.Close()
			return nil
		}

		if i < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i+1) * 500 * time.Millisecond):
			}
		}
	}

	return fmt.Errorf("database not ready after %d attempts", maxAttempts)
}
