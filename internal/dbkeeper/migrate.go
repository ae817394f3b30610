package dbkeeper

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate"
	"github.com/golang-migrate/migrate/database/postgres"
	_ "github.com/golang-migrate/migrate/source/file"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// migrationsDir finds the migrations folder from the working directory,
// falling back to the repository root when run from cmd/storefront or a package dir.
func migrationsDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("error getting current directory: %w", err)
	}

	for _, candidate := range []string{
		filepath.Join(dir, "migrations"),
		filepath.Join(dir, "..", "..", "migrations"),
	} {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return filepath.Abs(candidate)
		}
	}
	return "", fmt.Errorf("migrations directory not found from %s", dir)
}

// runMigrations applies every pending up migration.
func runMigrations(dsn string, log Log) error {
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return fmt.Errorf("unable to parse connection string: %w", err)
	}
	// Register the driver with the name pgx
	sqlDB := stdlib.OpenDB(*connConfig)
	defer sqlDB.Close()

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("error getting driver: %w", err)
	}

	path, err := migrationsDir()
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+filepath.ToSlash(path), "postgres", driver)
	if err != nil {
		return fmt.Errorf("error creating migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("error while performing migration: %w", err)
	}

	log.Info("Migrations applied", zap.String("dir", path))
	return nil
}
