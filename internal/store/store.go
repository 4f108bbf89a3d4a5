package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migration upgrades the render log from version-1 to version.
type migration struct {
	version int
	name    string
	stmt    string
}

// migrations run in order against databases whose user_version is lower
// than their version. schema.sql always describes version 0.
var migrations = []migration{
	{
		version: 1,
		name:    "index renders by patch hash",
		stmt:    `CREATE INDEX IF NOT EXISTS idx_renders_patch_hash ON renders(patch_hash)`,
	},
}

// currentSchemaVersion is the version of the newest migration.
var currentSchemaVersion = migrations[len(migrations)-1].version

// DefaultBusyTimeout is how long a connection waits for a lock held by
// another process writing the same render log.
const DefaultBusyTimeout = 5 * time.Second

// Store is the render log: one row per render plus one blob per tap.
//
// A Store holds a single connection. SQLite allows one writer at a time,
// and renders are written from the CLI, so there is no pool to tune.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures Open.
type Option func(*openConfig)

type openConfig struct {
	logger      *slog.Logger
	busyTimeout time.Duration
}

// WithLogger sets the logger used for migration messages.
func WithLogger(l *slog.Logger) Option {
	return func(c *openConfig) {
		c.logger = l
	}
}

// WithBusyTimeout sets the SQLite busy timeout.
//
// Default: 5s (DefaultBusyTimeout)
func WithBusyTimeout(d time.Duration) Option {
	return func(c *openConfig) {
		c.busyTimeout = d
	}
}

// Open creates or opens the render log at path, applies the connection
// pragmas and brings the schema up to date. Opening an existing log again is
// safe.
//
// Pragmas: WAL journal, NORMAL synchronous, busy timeout, foreign keys on.
func Open(path string, opts ...Option) (*Store, error) {
	cfg := openConfig{
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		busyTimeout: DefaultBusyTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open render log: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open render log %s: %w", path, err)
	}

	// Pragmas are per connection; keep exactly one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, logger: cfg.logger.With("db", path)}

	if err := s.applyPragmas(cfg.busyTimeout); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying connection for ad hoc queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) applyPragmas(busyTimeout time.Duration) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			return fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	return nil
}

// migrate creates the base tables and applies every pending migration,
// recording progress in user_version.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	for _, m := range migrations {
		if version >= m.version {
			continue
		}
		if _, err := s.db.Exec(m.stmt); err != nil {
			return fmt.Errorf("migrate to v%d (%s): %w", m.version, m.name, err)
		}
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			return fmt.Errorf("set user_version %d: %w", m.version, err)
		}
		version = m.version
		s.logger.Debug("render log migrated", "version", m.version, "migration", m.name)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
