// Package database manages the relational store that holds the liposome IVR
// records.  Two drivers are supported: the embedded SQLite file produced by the
// curation tooling (modernc.org/sqlite) and PostgreSQL (pgx stdlib).
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "modernc.org/sqlite"             // registers "sqlite"

	"github.com/turtacn/liposome-ivr/internal/config"
	"github.com/turtacn/liposome-ivr/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/liposome-ivr/pkg/errors"
)

// Dialect identifies the SQL flavour behind a Connection.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// sqlOpen is a variable to allow mocking in tests.
var sqlOpen = func(driverName, dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// Options controls how a store is opened.
type Options struct {
	Driver      string // config.DriverSQLite | config.DriverPGX
	Path        string
	DSN         string
	ReadOnly    bool
	BusyTimeout time.Duration

	// CreateIfMissing lets a SQLite file be created on open.  The build
	// pipeline never sets it; only schema migration does.
	CreateIfMissing bool
}

// OptionsFromConfig maps the database configuration section onto Options.
func OptionsFromConfig(cfg config.DatabaseConfig) Options {
	return Options{
		Driver:      cfg.Driver,
		Path:        cfg.Path,
		DSN:         cfg.DSN,
		ReadOnly:    cfg.ReadOnly,
		BusyTimeout: time.Duration(cfg.BusyTimeout) * time.Millisecond,
	}
}

// Connection owns the *sql.DB for one pipeline run.
type Connection struct {
	db      *sql.DB
	dialect Dialect
	target  string
	logger  logging.Logger
	once    sync.Once
}

// Open establishes a connection to the configured store and verifies it with
// a ping.
func Open(ctx context.Context, opts Options, log logging.Logger) (*Connection, error) {
	var (
		driverName string
		dsn        string
		dialect    Dialect
		target     string
	)

	switch opts.Driver {
	case config.DriverSQLite, "":
		if opts.Path == "" {
			return nil, errors.New(errors.ErrCodeDatabaseNotFound, "sqlite path is empty")
		}
		if !opts.CreateIfMissing {
			if _, err := os.Stat(opts.Path); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeDatabaseNotFound, "sqlite database file not found").
					WithDetail(opts.Path)
			}
		} else if dir := filepath.Dir(opts.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to create database directory")
			}
		}
		driverName, dialect, target = "sqlite", DialectSQLite, opts.Path
		dsn = sqliteDSN(opts)
	case config.DriverPGX:
		if opts.DSN == "" {
			return nil, errors.New(errors.ErrCodeDatabaseNotFound, "postgres dsn is empty")
		}
		driverName, dialect, target = "pgx", DialectPostgres, redactDSN(opts.DSN)
		dsn = opts.DSN
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedDriver, "unsupported database driver %q", opts.Driver)
	}

	db, err := sqlOpen(driverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to open database connection")
	}

	if dialect == DialectSQLite {
		// Pragmas live on the connection; one connection keeps them stable.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "database connection failed")
	}

	log.Info("Connected to database",
		logging.String("dialect", string(dialect)),
		logging.String("target", target),
		logging.Bool("read_only", opts.ReadOnly),
	)

	return &Connection{db: db, dialect: dialect, target: target, logger: log}, nil
}

// NewConnectionWithDB wraps an existing sql.DB (for testing).
func NewConnectionWithDB(db *sql.DB, dialect Dialect, log logging.Logger) *Connection {
	return &Connection{db: db, dialect: dialect, logger: log}
}

// DB returns the underlying sql.DB instance.
func (c *Connection) DB() *sql.DB {
	return c.db
}

// Dialect reports which SQL flavour the connection speaks.
func (c *Connection) Dialect() Dialect {
	return c.dialect
}

// HealthCheck verifies the database connection status.
func (c *Connection) HealthCheck(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "database health check failed")
	}
	return nil
}

// Stats returns database statistics.
func (c *Connection) Stats() sql.DBStats {
	return c.db.Stats()
}

// Close closes the database connection.  Safe to call more than once.
func (c *Connection) Close() error {
	var err error
	c.once.Do(func() {
		err = c.db.Close()
		if err == nil {
			c.logger.Info("Closed database connection", logging.String("dialect", string(c.dialect)))
		} else {
			c.logger.Error("Failed to close database connection", logging.Err(err))
		}
	})
	return err
}

func sqliteDSN(opts Options) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	timeout := opts.BusyTimeout
	if timeout <= 0 {
		timeout = time.Duration(config.DefaultDBBusyTimeoutMS) * time.Millisecond
	}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", timeout.Milliseconds()))
	if opts.ReadOnly {
		q.Add("_pragma", "query_only(1)")
	}
	return "file:" + opts.Path + "?" + q.Encode()
}

// redactDSN strips the password from a postgres URL for logging.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}
