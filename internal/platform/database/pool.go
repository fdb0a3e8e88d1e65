package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrNotConfigured is returned by health checks when the service runs on
// in-memory storage.
var ErrNotConfigured = errors.New("database not configured")

// Config holds connection pool settings.
type Config struct {
	URL          string
	MaxConns     int
	IdleConns    int
	ConnLifetime time.Duration

	// ConnectTimeout bounds the startup ping. The server refuses to start
	// half-connected; a database that is configured but unreachable is a
	// deploy error, not a degraded mode.
	ConnectTimeout time.Duration
}

// DefaultConfig sizes the pool for a single moderation service instance:
// writes are short row-locked transactions, so a small pool suffices.
func DefaultConfig() Config {
	return Config{
		MaxConns:       10,
		IdleConns:      5,
		ConnLifetime:   30 * time.Minute,
		ConnectTimeout: 5 * time.Second,
	}
}

// Pool wraps a *sql.DB over the pgx stdlib driver.
type Pool struct {
	db *sql.DB
}

// New opens and pings the pool. An empty URL returns (nil, nil): the caller
// falls back to in-memory stores, which is the supported dev mode.
func New(cfg Config) (*Pool, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.IdleConns)
	db.SetConnMaxLifetime(cfg.ConnLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{db: db}, nil
}

// DB returns the underlying handle for the stores.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Health reports whether the database is reachable.
func (p *Pool) Health(ctx context.Context) error {
	if p == nil || p.db == nil {
		return ErrNotConfigured
	}
	return p.db.PingContext(ctx)
}

// Close releases all connections.
func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}
