// Package database holds the database adapters that can be named by `type`
// in databases.conf.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/grandtrade/gta/internal/adapter"
	"github.com/grandtrade/gta/internal/convert"
	gtaerrors "github.com/grandtrade/gta/internal/errors"
	"github.com/grandtrade/gta/internal/logging"
	"github.com/grandtrade/gta/internal/secrets"
)

// ConfigFile is the database config file name inside the conf dir.
const ConfigFile = "databases.conf"

// Database is a loaded database adapter.
type Database interface {
	adapter.Instance
	// Open connects to the configured database. Later calls reuse the
	// connection.
	Open(ctx context.Context) (*sql.DB, error)
	Ping(ctx context.Context) error
	// CreateDB creates the configured database, skipping when it exists.
	CreateDB(ctx context.Context) error
	// DropDB drops the configured database if it exists.
	DropDB(ctx context.Context) error
	Exists(ctx context.Context) (bool, error)
	Host() string
	Port() int
	Name() string
}

// Opener opens a connection pool. sql.Open is the default.
type Opener func(driverName, dsn string) (*sql.DB, error)

type options struct {
	opener Opener
}

// Option configures NewRegistry.
type Option func(*options)

// WithOpener replaces sql.Open, for tests.
func WithOpener(o Opener) Option {
	return func(opts *options) {
		opts.opener = o
	}
}

// NewRegistry returns a registry with every built-in database.
func NewRegistry(opts ...Option) *adapter.Registry[Database] {
	o := options{opener: sql.Open}
	for _, opt := range opts {
		opt(&o)
	}

	r := adapter.NewRegistry[Database](adapter.KindDatabase)
	r.MustRegister(postgresDescriptor(o.opener))
	r.MustRegister(mysqlDescriptor(o.opener))
	return r
}

var credentialKeys = []string{"username"}

// dialect is what differs between SQL servers.
type dialect interface {
	driverName() string
	// dsn connects to database; an empty database means the maintenance
	// connection.
	dsn(s *sqlDatabase, database, user, password string) string
	existsQuery() string
	createStatement(name string) string
	dropStatement(name string) string
}

// sqlDatabase is the shared implementation over database/sql.
type sqlDatabase struct {
	adapter.Identity

	host     string
	port     int
	database string
	sslmode  string

	dialect     dialect
	opener      Opener
	credentials *secrets.Credentials
	logger      *logging.Logger

	mu   sync.Mutex
	conn *sql.DB
}

func loadSQLDatabase(in adapter.Input, d dialect, opener Opener) (*sqlDatabase, error) {
	host, err := convert.SectionString(in.Section, "host")
	if err != nil {
		return nil, err
	}
	port, err := convert.SectionInt(in.Section, "port")
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, gtaerrors.SectionError{
			Section: in.Section.ID(),
			Key:     "port",
			Err:     fmt.Errorf("%w: port %d out of range 1-65535", gtaerrors.ErrCast, port),
		}
	}
	name, err := convert.SectionString(in.Section, "database")
	if err != nil {
		return nil, err
	}

	logger := in.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	return &sqlDatabase{
		Identity:    in.Identity,
		host:        host,
		port:        port,
		database:    name,
		dialect:     d,
		opener:      opener,
		credentials: in.Credentials,
		logger:      logger,
	}, nil
}

func (s *sqlDatabase) Host() string { return s.host }
func (s *sqlDatabase) Port() int    { return s.port }

// Name is the database name on the server.
func (s *sqlDatabase) Name() string { return s.database }

func (s *sqlDatabase) connect(database string) (*sql.DB, error) {
	user, _, err := s.credentials.Reveal("username")
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	password, _, err := s.credentials.Reveal("password")
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	driver := s.dialect.driverName()
	dsn := s.dialect.dsn(s, database, user, password)
	if s.logger.DebugEnabled() {
		s.logger.Debug("Opening %s connection: %s", driver,
			s.dialect.dsn(s, database, user, logging.Secret(password).String()))
	}

	db, err := s.opener(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection to %s:%d: %w",
			driver, s.host, s.port, logging.RedactError(err, dsn, password))
	}
	return db, nil
}

func (s *sqlDatabase) Open(ctx context.Context) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return s.conn, nil
	}

	db, err := s.connect(s.database)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database %q: %w", s.database, err)
	}
	s.conn = db
	return db, nil
}

func (s *sqlDatabase) Ping(ctx context.Context) error {
	db, err := s.Open(ctx)
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

// withMaintenance runs fn on a short-lived connection to the server's
// maintenance database.
func (s *sqlDatabase) withMaintenance(ctx context.Context, fn func(*sql.DB) error) error {
	db, err := s.connect("")
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return fn(db)
}

func (s *sqlDatabase) Exists(ctx context.Context) (bool, error) {
	var exists bool
	err := s.withMaintenance(ctx, func(db *sql.DB) error {
		var found any
		err := db.QueryRowContext(ctx, s.dialect.existsQuery(), s.database).Scan(&found)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to check database %q: %w", s.database, err)
		}
		exists = true
		return nil
	})
	return exists, err
}

func (s *sqlDatabase) CreateDB(ctx context.Context) error {
	exists, err := s.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		s.logger.Debug("Database %q already exists on %s:%d, skipping create", s.database, s.host, s.port)
		return nil
	}

	return s.withMaintenance(ctx, func(db *sql.DB) error {
		if _, err := db.ExecContext(ctx, s.dialect.createStatement(s.database)); err != nil {
			return fmt.Errorf("failed to create database %q: %w", s.database, err)
		}
		s.logger.Info("Created database %q on %s:%d", s.database, s.host, s.port)
		return nil
	})
}

func (s *sqlDatabase) DropDB(ctx context.Context) error {
	// The server refuses to drop a database with open sessions.
	if err := s.closeConn(); err != nil {
		return err
	}

	return s.withMaintenance(ctx, func(db *sql.DB) error {
		if _, err := db.ExecContext(ctx, s.dialect.dropStatement(s.database)); err != nil {
			return fmt.Errorf("failed to drop database %q: %w", s.database, err)
		}
		s.logger.Info("Dropped database %q on %s:%d", s.database, s.host, s.port)
		return nil
	})
}

func (s *sqlDatabase) closeConn() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// Close closes the connection and wipes the credentials.
func (s *sqlDatabase) Close() error {
	err := s.closeConn()
	s.credentials.Destroy()
	return err
}
