//go:build integration

package integration

import (
	"database/sql"
	"fmt"
	"os"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/nicklaros/stockengine/internal/infrastructure/config"
)

// TestDB wraps a throwaway database created for a single test run.
type TestDB struct {
	DB     *sql.DB
	Name   string
	Config config.DatabaseConfig
}

// SetupTestDB creates a uniquely-named database and applies every migration
// under migrations/ before handing back a ready connection.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	cfg := testDatabaseConfig()

	dbName := fmt.Sprintf("stockengine_test_%d", os.Getpid())

	adminDB, err := sql.Open("postgres", adminConnString(cfg))
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	defer adminDB.Close()

	if _, err := adminDB.Exec(fmt.Sprintf("CREATE DATABASE %s", dbName)); err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	testConnStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, dbName, cfg.SSLMode)

	testDB, err := sql.Open("postgres", testConnStr)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	if err := testDB.Ping(); err != nil {
		t.Fatalf("failed to ping test database: %v", err)
	}

	driver, err := postgres.WithInstance(testDB, &postgres.Config{})
	if err != nil {
		t.Fatalf("failed to create postgres migration driver: %v", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://../../migrations", dbName, driver)
	if err != nil {
		t.Fatalf("failed to create migrate instance: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	dbCfg := cfg
	dbCfg.DBName = dbName

	return &TestDB{DB: testDB, Name: dbName, Config: dbCfg}
}

// TeardownTestDB drops the database created by SetupTestDB.
func TeardownTestDB(t *testing.T, db *TestDB) {
	t.Helper()
	db.DB.Close()

	cfg := testDatabaseConfig()
	adminDB, err := sql.Open("postgres", adminConnString(cfg))
	if err != nil {
		t.Logf("failed to connect to postgres for cleanup: %v", err)
		return
	}
	defer adminDB.Close()

	_, _ = adminDB.Exec(fmt.Sprintf(
		"SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname='%s' AND pid <> pg_backend_pid()", db.Name))
	if _, err := adminDB.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s", db.Name)); err != nil {
		t.Logf("failed to drop test database: %v", err)
	}
}

func adminConnString(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=postgres sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.SSLMode)
}

func testDatabaseConfig() config.DatabaseConfig {
	return config.DatabaseConfig{
		Host:     getEnvOrDefault("TEST_DB_HOST", "localhost"),
		Port:     getEnvOrDefault("TEST_DB_PORT", "5432"),
		User:     getEnvOrDefault("TEST_DB_USER", "postgres"),
		Password: getEnvOrDefault("TEST_DB_PASSWORD", "password"),
		SSLMode:  getEnvOrDefault("TEST_DB_SSLMODE", "disable"),
	}
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
