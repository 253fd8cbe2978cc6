package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/KaramelBytes/listings-eda/internal/table"
)

const batchSize = 50

// PostgresOptions configure the Postgres sink.
type PostgresOptions struct {
	DSN   string
	Table string
	// PingAttempts bounds the connection retries; zero means 5.
	PingAttempts int
	PingDelay    time.Duration
}

// PostgresSink stores each exported row as a JSONB record tagged with its
// run id. Runs are recorded in <table>_runs.
type PostgresSink struct {
	db     *sql.DB
	rows   string
	runs   string
	logger *slog.Logger
}

// NewPostgresSink opens a connection, waits for the server, and creates the
// export tables if needed.
func NewPostgresSink(ctx context.Context, opts PostgresOptions, logger *slog.Logger) (*PostgresSink, error) {
	if opts.DSN == "" {
		return nil, fmt.Errorf("postgres: empty dsn")
	}
	if opts.Table == "" {
		opts.Table = "listing_views"
	}
	if opts.PingAttempts <= 0 {
		opts.PingAttempts = 5
	}
	if opts.PingDelay <= 0 {
		opts.PingDelay = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("postgres", opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	for i := 0; i < opts.PingAttempts; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		logger.Warn("postgres not ready", "attempt", i+1, "error", err)
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(opts.PingDelay):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}
	s := &PostgresSink{
		db:     db,
		rows:   pq.QuoteIdentifier(opts.Table),
		runs:   pq.QuoteIdentifier(opts.Table + "_runs"),
		logger: logger.With("component", "export", "sink", "postgres"),
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return s, nil
}

func (s *PostgresSink) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %[1]s (
			run_id     UUID         PRIMARY KEY,
			source     TEXT         NOT NULL DEFAULT '',
			filter     JSONB        NOT NULL,
			row_count  INTEGER      NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS %[2]s (
			run_id  UUID    NOT NULL REFERENCES %[1]s(run_id) ON DELETE CASCADE,
			row_num INTEGER NOT NULL,
			record  JSONB   NOT NULL,
			PRIMARY KEY (run_id, row_num)
		);
	`, s.runs, s.rows))
	return err
}

// Write stores the run and all of its rows in one transaction.
func (s *PostgresSink) Write(ctx context.Context, run Run, view *table.Table) (int, error) {
	filterJSON, err := json.Marshal(run.Filter)
	if err != nil {
		return 0, fmt.Errorf("postgres: marshal filter: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (run_id, source, filter, row_count, created_at) VALUES ($1,$2,$3,$4,$5)`, s.runs),
		run.ID.String(), run.Source, string(filterJSON), view.Len(), run.CreatedAt,
	); err != nil {
		return 0, fmt.Errorf("postgres: insert run: %w", err)
	}

	records := view.Records()
	for i := 0; i < len(records); i += batchSize {
		end := i + batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := s.insertBatch(ctx, tx, run, i, records[i:end]); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("postgres: commit: %w", err)
	}
	s.logger.InfoContext(ctx, "export stored", "run_id", run.ID, "rows", len(records))
	return len(records), nil
}

func (s *PostgresSink) insertBatch(ctx context.Context, tx *sql.Tx, run Run, offset int, batch []map[string]any) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*3)
	for idx, rec := range batch {
		b, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("postgres: marshal row %d: %w", offset+idx, err)
		}
		base := idx * 3
		valueStrings = append(valueStrings, fmt.Sprintf("($%d,$%d,$%d)", base+1, base+2, base+3))
		valueArgs = append(valueArgs, run.ID.String(), offset+idx, string(b))
	}
	query := fmt.Sprintf(`INSERT INTO %s (run_id, row_num, record) VALUES %s`, s.rows, strings.Join(valueStrings, ","))
	if _, err := tx.ExecContext(ctx, query, valueArgs...); err != nil {
		return fmt.Errorf("postgres: insert rows %d..%d: %w", offset, offset+len(batch)-1, err)
	}
	return nil
}

// Count returns how many rows were stored for a run.
func (s *PostgresSink) Count(ctx context.Context, runID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE run_id = $1`, s.rows), runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count: %w", err)
	}
	return n, nil
}

func (s *PostgresSink) Close() error {
	return s.db.Close()
}
