package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"

	"github.com/nicklaros/stockengine/internal/application/ports"
	"github.com/nicklaros/stockengine/internal/infrastructure/config"
)

// PostgresDatabase implements ports.DatabasePort over database/sql + lib/pq.
type PostgresDatabase struct {
	db *sql.DB
}

// NewPostgresDatabase opens a pooled connection to PostgreSQL and configures
// the pool per cfg.
func NewPostgresDatabase(cfg config.DatabaseConfig) (*PostgresDatabase, error) {
	db, err := sql.Open("postgres", connString(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDatabase{db: db}, nil
}

func connString(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s options='-c statement_timeout=%d'",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode, cfg.StatementTimeout.Milliseconds())
}

// Migrate applies pending migrations from cfg.MigrationsPath.
func Migrate(cfg config.DatabaseConfig) error {
	db, err := sql.Open("postgres", connString(cfg))
	if err != nil {
		return fmt.Errorf("failed to open database for migration: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create postgres migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+cfg.MigrationsPath, cfg.DBName, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// BeginTransaction opens a new *sql.Tx and wraps it as a TransactionPort.
func (p *PostgresDatabase) BeginTransaction(ctx context.Context) (ports.TransactionPort, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return NewSQLTransaction(tx), nil
}

// Health pings the underlying connection pool.
func (p *PostgresDatabase) Health(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close releases the connection pool.
func (p *PostgresDatabase) Close() error {
	return p.db.Close()
}

// DB exposes the raw *sql.DB for non-transactional reads (C3).
func (p *PostgresDatabase) DB() *sql.DB {
	return p.db
}
