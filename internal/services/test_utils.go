//go:build integration

package services

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"adaptivequiz/internal/config"
	"adaptivequiz/internal/database"
	"adaptivequiz/internal/observability"

	"github.com/stretchr/testify/require"
)

// SharedTestDBSetup provides a clean, migrated database for each integration
// test. Requires TEST_DATABASE_URL to point at a disposable database.
func SharedTestDBSetup(t *testing.T) *sql.DB {
	t.Helper()

	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Fatal("TEST_DATABASE_URL environment variable must be set for integration tests")
	}

	logger := observability.NewLogger(&config.OpenTelemetryConfig{EnableLogging: false})
	dbManager := database.NewManager(logger)

	cfg := database.DefaultDatabaseConfig()
	cfg.URL = databaseURL
	db, err := dbManager.InitDBWithConfig(cfg)
	require.NoError(t, err)

	CleanupTestDatabase(t, db)
	return db
}

// CleanupTestDatabase truncates all engine tables
func CleanupTestDatabase(t *testing.T, db *sql.DB) {
	t.Helper()

	ctx := context.Background()
	cleanupQueries := []string{
		"TRUNCATE TABLE attempt_answers CASCADE",
		"TRUNCATE TABLE attempts CASCADE",
		"TRUNCATE TABLE quiz_questions CASCADE",
		"TRUNCATE TABLE quizzes CASCADE",
		"TRUNCATE TABLE topic_skills CASCADE",
		"TRUNCATE TABLE questions CASCADE",
	}
	for _, query := range cleanupQueries {
		_, err := db.ExecContext(ctx, query)
		require.NoError(t, err)
	}
}
