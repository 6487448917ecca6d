package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/jordanlanch/leadrouter/pkg/logger"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Client holds the database handle
type Client struct {
	DB     *sql.DB
	Driver string
}

// PoolConfig holds connection pool configuration
type PoolConfig struct {
	MaxOpenConns    int           // Maximum number of open connections
	MaxIdleConns    int           // Maximum number of idle connections
	ConnMaxLifetime time.Duration // Maximum amount of time a connection may be reused
	ConnMaxIdleTime time.Duration // Maximum amount of time a connection may be idle
}

// SSLConfig holds SSL/TLS configuration for database connections
type SSLConfig struct {
	Mode         string // disable, require, verify-ca, verify-full
	CertPath     string // Path to client certificate
	KeyPath      string // Path to client key
	RootCertPath string // Path to root CA certificate
}

// DefaultPoolConfig returns sensible defaults for connection pooling
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

// BuildConnectionString builds a PostgreSQL connection string with SSL parameters
func BuildConnectionString(baseURL string, sslCfg *SSLConfig) (string, error) {
	if sslCfg == nil {
		return baseURL, nil
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse database URL: %w", err)
	}

	query := parsedURL.Query()

	// Set SSL mode (overrides any existing sslmode in URL)
	if sslCfg.Mode != "" {
		query.Set("sslmode", sslCfg.Mode)
	}
	if sslCfg.CertPath != "" {
		query.Set("sslcert", sslCfg.CertPath)
	}
	if sslCfg.KeyPath != "" {
		query.Set("sslkey", sslCfg.KeyPath)
	}
	if sslCfg.RootCertPath != "" {
		query.Set("sslrootcert", sslCfg.RootCertPath)
	}

	parsedURL.RawQuery = query.Encode()

	return parsedURL.String(), nil
}

// Options configures Open.
type Options struct {
	Driver string
	URL    string
	Pool   PoolConfig
	SSL    *SSLConfig
	Logger logger.Logger
}

// Open connects to the database and configures the pool. SSL settings only
// apply to PostgreSQL.
func Open(ctx context.Context, opts Options) (*Client, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	connStr := opts.URL
	switch opts.Driver {
	case DriverPostgres:
		var err error
		connStr, err = BuildConnectionString(opts.URL, opts.SSL)
		if err != nil {
			return nil, fmt.Errorf("failed building connection string: %w", err)
		}
		if opts.SSL != nil && opts.SSL.Mode != "" && opts.SSL.Mode != "disable" {
			log.Info("database SSL enabled", "mode", opts.SSL.Mode)
		}
	case DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	db, err := sql.Open(opts.Driver, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed opening connection to %s: %w", opts.Driver, err)
	}

	pool := opts.Pool
	if opts.Driver == DriverSQLite {
		// SQLite serializes writers; one connection also keeps :memory: databases alive.
		pool.MaxOpenConns = 1
		pool.MaxIdleConns = 1
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed connecting to %s: %w", opts.Driver, err)
	}

	log.Info("database connection pool configured",
		"driver", opts.Driver,
		"max_open", pool.MaxOpenConns,
		"max_idle", pool.MaxIdleConns,
		"max_lifetime", pool.ConnMaxLifetime.String(),
		"max_idle_time", pool.ConnMaxIdleTime.String(),
	)

	return &Client{DB: db, Driver: opts.Driver}, nil
}

// Statements splits the embedded schema into individual statements.
func Statements() []string {
	var stmts []string
	for _, part := range strings.Split(schema, ";") {
		var lines []string
		for _, line := range strings.Split(part, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			lines = append(lines, line)
		}
		if stmt := strings.TrimSpace(strings.Join(lines, "\n")); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// Migrate creates missing tables and indexes. It is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range Statements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed applying schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection
func (c *Client) Close() error {
	return c.DB.Close()
}

// Ping checks if the database is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Stats returns database connection pool statistics
func (c *Client) Stats() sql.DBStats {
	return c.DB.Stats()
}
