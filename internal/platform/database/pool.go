// Package database owns the Postgres connection pool used by the quota
// store. The workload is many short single-row conditional UPDATEs, so the
// pool is tuned for quick turnaround rather than long-lived transactions.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dbPoolOpenConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quotaguard_db_pool_open_conns",
		Help: "Number of established connections, in use and idle",
	})
	dbPoolIdleConns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quotaguard_db_pool_idle_conns",
		Help: "Number of idle connections in the pool",
	})
	dbPoolWaitCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quotaguard_db_pool_wait_total",
		Help: "Total number of times a connection was waited for",
	})
	dbPoolWaitSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quotaguard_db_pool_wait_seconds_total",
		Help: "Total time spent waiting for a connection",
	})
)

// Config holds Postgres pool configuration.
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConfig returns defaults for the quota store workload: conditional
// writes touch one row and release the connection immediately, so a modest
// pool with short-lived idle connections is enough.
func DefaultConfig(url string) Config {
	return Config{
		URL:             url,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		ConnMaxIdleTime: time.Minute,
	}
}

// Pool wraps a *sql.DB with health checking and pool instrumentation.
type Pool struct {
	db *sql.DB
}

// New opens a Postgres pool through the pgx stdlib driver and verifies
// connectivity before returning. Returns nil if the URL is empty
// (Postgres not configured).
func New(cfg Config) (*Pool, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	return &Pool{db: db}, nil
}

// DB returns the underlying *sql.DB for query operations.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Health checks if the database is reachable.
func (p *Pool) Health(ctx context.Context) error {
	if p == nil || p.db == nil {
		return fmt.Errorf("postgres not configured")
	}
	return p.db.PingContext(ctx)
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// RecordPoolStats updates Prometheus metrics with current pool statistics.
// Call periodically from a background goroutine.
func (p *Pool) RecordPoolStats() {
	stats := p.db.Stats()
	dbPoolOpenConns.Set(float64(stats.OpenConnections))
	dbPoolIdleConns.Set(float64(stats.Idle))
	dbPoolWaitCount.Set(float64(stats.WaitCount))
	dbPoolWaitSeconds.Set(stats.WaitDuration.Seconds())
}
