//go:build integration

// Package dbhelpers provides minimal database test helpers for integration tests.
package dbhelpers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/fluxbase-eu/filterable/internal/config"
	"github.com/fluxbase-eu/filterable/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// defaultDBRetryAttempts is the number of times to retry database connection
	defaultDBRetryAttempts = 5
	// defaultDBHealthTimeout is the timeout for database health checks
	defaultDBHealthTimeout = 10 * time.Second
)

func init() {
	// Load .env file if it exists (for local development)
	_ = godotenv.Load()

	initTestLogger()
}

func initTestLogger() {
	logLevel := zerolog.InfoLevel
	if os.Getenv("FILTERABLE_LOG_DEBUG") == "true" {
		logLevel = zerolog.DebugLevel
	}

	zerolog.SetGlobalLevel(logLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: "15:04:05",
		NoColor:    os.Getenv("CI") != "",
	})
}

// DBTestContext holds database connection pool and configuration for integration tests.
//
// Always close the context with defer tc.Close() to ensure proper cleanup.
type DBTestContext struct {
	Pool     *pgxpool.Pool
	DBConfig config.DatabaseConfig
	T        *testing.T
}

// NewDBTestContext connects to the test database and applies the bundled
// migrations, skipping the test when no database is reachable.
//
// Example:
//
//	func TestPostgresExecutor(t *testing.T) {
//	    tc := dbhelpers.NewDBTestContext(t)
//	    defer tc.Close()
//	    tc.SeedEvents()
//	}
func NewDBTestContext(t *testing.T) *DBTestContext {
	t.Helper()
	cfg := GetTestConfig()

	log.Info().
		Str("db_user", cfg.User).
		Str("db_host", cfg.Host).
		Str("db_database", cfg.Database).
		Msg("Integration test database configuration")

	pool, err := connectPoolWithRetry(cfg.ConnectionString(), retryAttempts())
	if err != nil {
		t.Skipf("test database not available: %v", err)
	}

	if err := database.Migrate(cfg); err != nil {
		pool.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return &DBTestContext{
		Pool:     pool,
		DBConfig: cfg,
		T:        t,
	}
}

// connectPoolWithRetry attempts to connect to the test database with exponential backoff.
func connectPoolWithRetry(connURL string, maxAttempts int) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	var err error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		log.Debug().
			Int("attempt", attempt).
			Int("max_attempts", maxAttempts).
			Msg("Attempting to connect to test database...")

		pool, err = pgxpool.New(context.Background(), connURL)
		if err == nil {
			ctx, cancel := context.WithTimeout(context.Background(), defaultDBHealthTimeout)
			healthErr := pool.Ping(ctx)
			cancel()

			if healthErr == nil {
				return pool, nil
			}
			pool.Close()
			err = healthErr
		}

		if attempt >= maxAttempts {
			break
		}

		// 1s, 2s, 4s, 8s
		backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
		log.Debug().
			Err(err).
			Int("attempt", attempt).
			Dur("retry_in", backoff).
			Msg("Test database connection failed, retrying...")
		time.Sleep(backoff)
	}

	return nil, fmt.Errorf("failed to connect to test database after %d attempts: %w", maxAttempts, err)
}

// Close empties the events table and closes the pool.
func (tc *DBTestContext) Close() {
	if tc.Pool != nil {
		tc.ExecuteSQL("TRUNCATE TABLE events RESTART IDENTITY")
		tc.Pool.Close()
	}
}

// ExecuteSQL executes a SQL statement, logging failures.
func (tc *DBTestContext) ExecuteSQL(query string, args ...interface{}) {
	_, err := tc.Pool.Exec(context.Background(), query, args...)
	if err != nil && tc.T != nil {
		tc.T.Logf("Warning: ExecuteSQL failed: %v", err)
	}
}

// Event is one row of the demo events table.
type Event struct {
	Name         string
	Level        string
	Code         int
	Tags         []string
	Acknowledged bool
	Data         map[string]interface{}
	CreatedAt    time.Time
}

// Events returns the rows inserted by SeedEvents, oldest first.
func Events() []Event {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return []Event{
		{"disk-full", "alert", 500, []string{"ops", "storage"}, false, map[string]interface{}{"app": "api", "host": "db-1"}, base},
		{"login", "notice", 200, []string{"auth"}, true, map[string]interface{}{"app": "web"}, base.Add(time.Minute)},
		{"slow-query", "warning", 300, []string{"ops", "db"}, false, map[string]interface{}{"app": "api"}, base.Add(2 * time.Minute)},
		{"oom", "alert", 500, []string{"ops"}, true, map[string]interface{}{"app": "worker"}, base.Add(3 * time.Minute)},
		{"logout", "notice", 200, []string{"auth"}, false, map[string]interface{}{"app": "carol"}, base.Add(4 * time.Minute)},
	}
}

// SeedEvents replaces the contents of the events table with Events().
func (tc *DBTestContext) SeedEvents() {
	tc.T.Helper()
	ctx := context.Background()

	if _, err := tc.Pool.Exec(ctx, "TRUNCATE TABLE events RESTART IDENTITY"); err != nil {
		tc.T.Fatalf("Failed to truncate events: %v", err)
	}
	for _, e := range Events() {
		data, err := json.Marshal(e.Data)
		if err != nil {
			tc.T.Fatalf("Failed to encode event data: %v", err)
		}
		_, err = tc.Pool.Exec(ctx,
			`INSERT INTO events (name, level, code, tags, acknowledged, data, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			e.Name, e.Level, e.Code, e.Tags, e.Acknowledged, data, e.CreatedAt)
		if err != nil {
			tc.T.Fatalf("Failed to insert event %s: %v", e.Name, err)
		}
	}
}

// GetTestConfig returns the test database configuration from environment variables.
func GetTestConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Enabled:        true,
		Host:           getEnv("FILTERABLE_TEST_DB_HOST", "localhost"),
		Port:           parseInt(getEnv("FILTERABLE_TEST_DB_PORT", "5432")),
		User:           getEnv("FILTERABLE_TEST_DB_USER", "postgres"),
		Password:       getEnv("FILTERABLE_TEST_DB_PASSWORD", "postgres"),
		Database:       getEnv("FILTERABLE_TEST_DB_NAME", "filterable_test"),
		SSLMode:        getEnv("FILTERABLE_TEST_DB_SSL_MODE", "disable"),
		MaxConnections: 5,
	}
}

func retryAttempts() int {
	if n := parseInt(os.Getenv("FILTERABLE_TEST_DB_RETRIES")); n > 0 {
		return n
	}
	return defaultDBRetryAttempts
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
