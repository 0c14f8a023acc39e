package postgres

import (
	"database/sql"
	"testing"

	"github.com/asakaida/rolegate/internal/infrastructure/config"
	"github.com/asakaida/rolegate/internal/infrastructure/database"
	"github.com/spf13/viper"
)

// SetupTestDB connects to the database described by .env.test and runs the
// snapshot migrations. Tests are skipped when no password is configured.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	// Initialize test config
	if err := config.InitConfig("test"); err != nil {
		t.Fatalf("Failed to init config: %v", err)
	}
	viper.Set("SNAPSHOT_BACKEND", config.BackendPostgres)

	cfg, err := config.Load()
	if err != nil {
		t.Skipf("Integration test - requires running database: %v", err)
	}

	// Connect to database
	pg, err := database.NewPostgres(&cfg.Database)
	if err != nil {
		t.Skipf("Integration test - database unavailable: %v", err)
	}

	// Run migrations
	if err := pg.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return pg.DB
}

// CleanupTestDB removes the rows written under key and closes the connection
func CleanupTestDB(t *testing.T, db *sql.DB, key string) {
	t.Helper()

	if _, err := db.Exec("DELETE FROM snapshots WHERE key = $1", key); err != nil {
		t.Logf("Warning: Failed to clean up snapshots: %v", err)
	}

	if err := db.Close(); err != nil {
		t.Logf("Warning: Failed to close database: %v", err)
	}
}
