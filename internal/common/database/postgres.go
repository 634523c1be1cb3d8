package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"vehicle-financing/internal/common/config"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// PostgresClient owns the pool behind the vehicle, user, loan and valuation
// repositories.
type PostgresClient struct {
	DB   *sql.DB
	name string
}

// NewPostgres opens a lib/pq pool sized from cfg. The pool connects lazily;
// serve and the CLI commands Ping with retries before using it.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	idle := cfg.MaxIdle
	if idle > cfg.MaxConnections && cfg.MaxConnections > 0 {
		idle = cfg.MaxConnections
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(idle)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db, name: cfg.Database}, nil
}

// RegisterMetrics exposes the pool statistics (open, in-use and idle
// connections, waits) as go_sql_* series labelled with the database name.
func (c *PostgresClient) RegisterMetrics(reg prometheus.Registerer) error {
	if err := reg.Register(collectors.NewDBStatsCollector(c.DB, c.name)); err != nil {
		return fmt.Errorf("register postgres pool metrics: %w", err)
	}
	return nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	if err := c.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

func (c *PostgresClient) Close() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
