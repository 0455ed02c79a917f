package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dealposter/internal/model"
)

const runColumns = `id, triggered_by, status, theme, deal_count, started_at, finished_at, duration_ms, brands, error`

type RunRepository struct {
	db *Database
}

func NewRunRepository(db *Database) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) Create(ctx context.Context, run *model.Run) error {
	query := `
		INSERT INTO report_runs (id, triggered_by, status, theme, deal_count, started_at, brands)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.TriggeredBy, run.Status, run.Theme, run.DealCount, run.StartedAt, run.Brands)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// Complete persists the final state of a finished run.
func (r *RunRepository) Complete(ctx context.Context, run *model.Run) error {
	query := `
		UPDATE report_runs
		SET status = $1, theme = $2, deal_count = $3, finished_at = $4, duration_ms = $5, brands = $6, error = $7
		WHERE id = $8
	`
	_, err := r.db.ExecContext(ctx, query,
		run.Status, run.Theme, run.DealCount, run.FinishedAt, run.Duration, run.Brands, run.Error, run.ID)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

func (r *RunRepository) AddDelivery(ctx context.Context, rec model.DeliveryRecord) error {
	query := `
		INSERT INTO report_deliveries (run_id, brand, destination, status, error)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, rec.RunID, rec.Brand, rec.Destination, rec.Status, rec.Error)
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

func (r *RunRepository) FindByID(ctx context.Context, id string) (*model.Run, error) {
	var run model.Run
	query := `SELECT ` + runColumns + ` FROM report_runs WHERE id = $1`
	err := r.db.GetContext(ctx, &run, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find run: %w", err)
	}
	return &run, nil
}

func (r *RunRepository) FindRecent(ctx context.Context, limit int) ([]model.Run, error) {
	var runs []model.Run
	query := `SELECT ` + runColumns + ` FROM report_runs ORDER BY started_at DESC LIMIT $1`
	err := r.db.SelectContext(ctx, &runs, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find recent runs: %w", err)
	}
	return runs, nil
}

func (r *RunRepository) FindDeliveries(ctx context.Context, runID string) ([]model.DeliveryRecord, error) {
	var records []model.DeliveryRecord
	query := `
		SELECT id, run_id, brand, destination, status, error, created_at
		FROM report_deliveries WHERE run_id = $1 ORDER BY created_at
	`
	err := r.db.SelectContext(ctx, &records, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to find deliveries: %w", err)
	}
	return records, nil
}
