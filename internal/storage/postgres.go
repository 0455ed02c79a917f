package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/dealposter/internal/config"
)

type Database struct {
	*sqlx.DB
}

func NewDatabase(cfg *config.DatabaseConfig) (*Database, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	return &Database{DB: db}, nil
}

func (d *Database) Ping(ctx context.Context) error {
	return d.DB.PingContext(ctx)
}

func (d *Database) Close() error {
	return d.DB.Close()
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS report_runs (
		id UUID PRIMARY KEY,
		triggered_by VARCHAR(100) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'running',
		theme VARCHAR(50) NOT NULL DEFAULT '',
		deal_count INTEGER NOT NULL DEFAULT 0,
		started_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		finished_at TIMESTAMP WITH TIME ZONE,
		duration_ms BIGINT,
		brands JSONB,
		error TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS report_deliveries (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		run_id UUID REFERENCES report_runs(id) ON DELETE CASCADE,
		brand VARCHAR(100) NOT NULL DEFAULT '',
		destination VARCHAR(255) NOT NULL,
		status VARCHAR(20) NOT NULL,
		error TEXT,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_report_runs_started_at ON report_runs(started_at)`,
	`CREATE INDEX IF NOT EXISTS idx_report_runs_status ON report_runs(status)`,
	`CREATE INDEX IF NOT EXISTS idx_report_deliveries_run_id ON report_deliveries(run_id)`,
}

func (d *Database) RunMigrations() error {
	for i, migration := range migrations {
		if _, err := d.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
