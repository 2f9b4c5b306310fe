package migration

import (
	"database/sql"
	"embed"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

// Migrator handles database migrations
type Migrator struct {
	db         *sql.DB
	migrations embed.FS
	service    string
}

// Config holds migration configuration
type Config struct {
	DB         *sql.DB
	Service    string
	Migrations embed.FS
}

// NewMigrator creates a new migrator
func NewMigrator(config *Config) (*Migrator, error) {
	if err := config.DB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Migrator{
		db:         config.DB,
		migrations: config.Migrations,
		service:    config.Service,
	}, nil
}

// Migrate runs all pending migrations
func (m *Migrator) Migrate() error {
	log.Printf("Starting migrations for service: %s", m.service)

	migration, err := m.createMigration()
	if err != nil {
		return fmt.Errorf("failed to create migration: %w", err)
	}

	if err := migration.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, _ := migration.Version()
	log.Printf("Migrations completed successfully. Current version: %d", version)

	return nil
}

// MigrateDown runs n down migrations
func (m *Migrator) MigrateDown(n int) error {
	migration, err := m.createMigration()
	if err != nil {
		return err
	}

	if err := migration.Steps(-n); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run %d down migrations: %w", n, err)
	}

	return nil
}

// Version returns the current migration version
func (m *Migrator) Version() (uint, bool, error) {
	migration, err := m.createMigration()
	if err != nil {
		return 0, false, err
	}

	return migration.Version()
}

// createMigration creates a migration instance
func (m *Migrator) createMigration() (*migrate.Migrate, error) {
	sourceDriver, err := iofs.New(m.migrations, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create source driver: %w", err)
	}

	dbDriver, err := postgres.WithInstance(m.db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	return migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
}
