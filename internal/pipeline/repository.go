package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Repository handles database operations for refresh run tracking
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new refresh run repository
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

type runRow struct {
	RefreshRun
	FailedTables pq.StringArray `db:"failed_tables"`
}

func (r runRow) toRun() *RefreshRun {
	run := r.RefreshRun
	run.FailedTables = []string(r.FailedTables)
	if run.FailedTables == nil {
		run.FailedTables = []string{}
	}
	return &run
}

const runColumns = `id, source, status, threshold_key, tables_loaded, failed_tables,
	total_rows, started_at, completed_at, error_message`

// CreateRun inserts a new refresh run record
func (r *Repository) CreateRun(ctx context.Context, run *RefreshRun) error {
	query := `
		INSERT INTO refresh_runs (
			id, source, status, threshold_key, tables_loaded,
			failed_tables, total_rows, started_at, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(
		ctx, query,
		run.ID, run.Source, run.Status, run.ThresholdKey, run.TablesLoaded,
		pq.Array(run.FailedTables), run.TotalRows, run.StartedAt, run.ErrorMessage,
	)
	return err
}

// UpdateRun updates an existing refresh run
func (r *Repository) UpdateRun(ctx context.Context, run *RefreshRun) error {
	query := `
		UPDATE refresh_runs
		SET status = $1, tables_loaded = $2, failed_tables = $3, total_rows = $4,
		    completed_at = $5, error_message = $6
		WHERE id = $7
	`

	_, err := r.db.ExecContext(
		ctx, query,
		run.Status, run.TablesLoaded, pq.Array(run.FailedTables), run.TotalRows,
		run.CompletedAt, run.ErrorMessage, run.ID,
	)
	return err
}

// GetRun retrieves a refresh run by ID. A missing run returns nil, nil.
func (r *Repository) GetRun(ctx context.Context, id string) (*RefreshRun, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, `SELECT `+runColumns+` FROM refresh_runs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toRun(), nil
}

// ListRuns returns the most recent runs, newest first.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]*RefreshRun, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []runRow
	err := r.db.SelectContext(ctx, &rows,
		`SELECT `+runColumns+` FROM refresh_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}

	runs := make([]*RefreshRun, 0, len(rows))
	for _, row := range rows {
		runs = append(runs, row.toRun())
	}
	return runs, nil
}

// GetRunStats retrieves run counts since the given time
func (r *Repository) GetRunStats(ctx context.Context, since time.Time) (*RunStats, error) {
	query := `
		SELECT
			COUNT(*) AS runs,
			COUNT(CASE WHEN status = $1 THEN 1 END) AS failed,
			MAX(CASE WHEN status = $2 THEN completed_at END) AS last_completed_at
		FROM refresh_runs
		WHERE started_at >= $3
	`

	stats := &RunStats{}
	if err := r.db.GetContext(ctx, stats, query, StatusFailed, StatusCompleted, since); err != nil {
		return nil, err
	}
	return stats, nil
}
