package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/diewo77/go-timesheets/internal/config"
	"github.com/diewo77/go-timesheets/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// registers the postgres driver for golang-migrate
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate brings the schema up to date. PostgreSQL with migrations enabled
// runs the embedded SQL migrations; everything else (sqlite, local dev)
// uses gorm AutoMigrate.
func Migrate(db *gorm.DB, cfg config.DatabaseConfig) error {
	if cfg.Driver == "postgres" && cfg.Migrations {
		if err := runSQLMigrations(cfg.URL()); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
	} else if err := AutoMigrate(db); err != nil {
		return err
	}

	for _, table := range []string{"users", "workspaces", "memberships", "time_entries", "invoices", "invoice_lines"} {
		if !db.Migrator().HasTable(table) {
			return errors.New("missing table after migration: " + table)
		}
	}
	return nil
}

// AutoMigrate creates or updates every table from the gorm models.
func AutoMigrate(db *gorm.DB) error {
	for _, m := range models.All() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("automigrate %T: %w", m, err)
		}
	}
	return nil
}

// runSQLMigrations applies the embedded migrations with golang-migrate.
func runSQLMigrations(url string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
