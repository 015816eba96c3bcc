package database

import (
	"embed"
	stderrors "errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // registers "pgx5"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite" // registers "sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/turtacn/liposome-ivr/internal/config"
	"github.com/turtacn/liposome-ivr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/liposome-ivr/pkg/errors"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Migrator applies the embedded schema migrations for one dialect.  It owns
// its own database handle, separate from any pipeline Connection.
type Migrator struct {
	m       *migrate.Migrate
	dialect Dialect
	logger  logging.Logger
}

// NewMigrator prepares a migrator for the store described by opts.  SQLite
// files (and their parent directory) are created when absent.
func NewMigrator(opts Options, log logging.Logger) (*Migrator, error) {
	var (
		dialect Dialect
		dbURL   string
	)

	switch opts.Driver {
	case config.DriverSQLite, "":
		if opts.Path == "" {
			return nil, errors.New(errors.ErrCodeDatabaseNotFound, "sqlite path is empty")
		}
		if dir := filepath.Dir(opts.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeMigrationFailed, "failed to create database directory")
			}
		}
		dialect = DialectSQLite
		dbURL = "sqlite://" + opts.Path
	case config.DriverPGX:
		if opts.DSN == "" {
			return nil, errors.New(errors.ErrCodeDatabaseNotFound, "postgres dsn is empty")
		}
		u, err := pgxMigrateURL(opts.DSN)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeMigrationFailed, "invalid postgres dsn")
		}
		dialect, dbURL = DialectPostgres, u
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedDriver, "unsupported database driver %q", opts.Driver)
	}

	sub, err := fs.Sub(migrationsFS, "migrations/"+string(dialect))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMigrationFailed, "failed to locate embedded migrations")
	}
	src, err := iofs.New(sub, ".")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeMigrationFailed, "failed to open embedded migrations")
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		_ = src.Close()
		return nil, errors.Wrap(err, errors.ErrCodeMigrationFailed, "failed to create migrate instance")
	}

	return &Migrator{m: m, dialect: dialect, logger: log}, nil
}

// Up applies all pending migrations.  No pending migrations is not an error.
func (mg *Migrator) Up() error {
	if err := mg.m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		version, _, _ := mg.m.Version()
		return errors.Wrap(err, errors.ErrCodeMigrationFailed, "failed to run migrations").
			WithDetail(fmt.Sprintf("current version: %d", version))
	}
	version, dirty, err := mg.Version()
	if err != nil {
		mg.logger.Warn("Failed to get migration version", logging.Err(err))
	}
	mg.logger.Info("Database migrations completed",
		logging.String("dialect", string(mg.dialect)),
		logging.Int64("version", int64(version)),
		logging.Bool("dirty", dirty),
	)
	return nil
}

// Rollback reverts the given number of migration steps.
func (mg *Migrator) Rollback(steps int) error {
	if steps <= 0 {
		return errors.Newf(errors.CodeInvalidParam, "steps must be greater than 0, got %d", steps)
	}
	if err := mg.m.Steps(-steps); err != nil {
		if stderrors.Is(err, migrate.ErrNoChange) {
			return errors.New(errors.ErrCodeMigrationFailed, "no migrations to roll back")
		}
		return errors.Wrap(err, errors.ErrCodeMigrationFailed, "failed to roll back migrations")
	}
	mg.logger.Info("Rolled back migrations", logging.Int("steps", steps))
	return nil
}

// Version returns the applied migration version and dirty flag.  A store with
// no migrations applied reports version 0.
func (mg *Migrator) Version() (uint, bool, error) {
	version, dirty, err := mg.m.Version()
	if err != nil {
		if stderrors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, errors.ErrCodeMigrationFailed, "failed to get migration version")
	}
	return version, dirty, nil
}

// Close releases the source and the migrator's database handle.
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	if srcErr != nil {
		return errors.Wrap(srcErr, errors.ErrCodeMigrationFailed, "failed to close migration source")
	}
	if dbErr != nil {
		return errors.Wrap(dbErr, errors.ErrCodeMigrationFailed, "failed to close migration database")
	}
	return nil
}

// pgxMigrateURL rewrites a postgres:// URL to the pgx5:// scheme understood
// by the migrate driver.
func pgxMigrateURL(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "postgres", "postgresql", "pgx5":
		u.Scheme = "pgx5"
	default:
		return "", stderrors.New("expected a postgres:// URL")
	}
	return u.String(), nil
}
