package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	MigrateUp      = "up"
	MigrateDown    = "down"
	MigrateForce   = "force"
	MigrateVersion = "version"
)

// MigrationResult reports the schema version after a migration action.
type MigrationResult struct {
	Version uint
	Dirty   bool
}

// Migrate applies the embedded schema migrations. steps limits up/down to a
// number of migrations; for force it is the target version.
func Migrate(dsn string, action string, steps int) (MigrationResult, error) {
	if dsn == "" {
		return MigrationResult{}, errors.New("postgres dsn is required")
	}
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("open migration connection: %w", err)
	}
	defer conn.Close()

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return MigrationResult{}, fmt.Errorf("load embedded migrations: %w", err)
	}
	driver, err := migratepostgres.WithInstance(conn, &migratepostgres.Config{})
	if err != nil {
		return MigrationResult{}, fmt.Errorf("init migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("init migrator: %w", err)
	}

	switch action {
	case MigrateUp:
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
	case MigrateDown:
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
	case MigrateForce:
		err = m.Force(steps)
	case MigrateVersion:
	default:
		return MigrationResult{}, fmt.Errorf("unknown migration action %q", action)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return MigrationResult{}, fmt.Errorf("migrate %s: %w", action, err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return MigrationResult{}, fmt.Errorf("read migration version: %w", err)
	}
	return MigrationResult{Version: version, Dirty: dirty}, nil
}
