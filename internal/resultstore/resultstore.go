// Package resultstore persists analysis runs and their parameter sets
// in a local SQLite database, so batch results can be compared across
// recipes and over time.
package resultstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/metrolab/toposcan/internal/monitoring"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Run is one recorded batch execution.
type Run struct {
	ID            string
	CreatedAt     time.Time
	FilterType    string
	CutoffUM      float64
	LevelingOrder int
	AnalysedCount int
	FailedCount   int
}

// FileResult is one file's outcome within a run. Either Error is set
// or Parameters carries the evaluated parameter set.
type FileResult struct {
	Source              string
	Format              string
	Error               string
	ConvergenceExceeded bool
	Parameters          map[string]float64
}

// Store wraps the results database. Safe for concurrent use through
// database/sql's pooling.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies any pending
// schema migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("resultstore: open %s: %w", path, err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("resultstore: load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("resultstore: create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("resultstore: create migrate instance: %w", err)
	}
	// Not closing m: that would close the underlying DB connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("resultstore: migration up failed: %w", err)
	}
	return nil
}

// SaveRun records a run and its per-file results in one transaction
// and returns the run ID, generating one when run.ID is empty.
func (s *Store) SaveRun(ctx context.Context, run Run, results []FileResult) (string, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	analysed, failed := 0, 0
	for _, res := range results {
		if res.Error != "" {
			failed++
		} else {
			analysed++
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("resultstore: begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO analysis_runs (id, created_at, filter_type, cutoff_um, leveling_order, analysed_count, failed_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.CreatedAt.Unix(), run.FilterType, run.CutoffUM, run.LevelingOrder, analysed, failed)
	if err != nil {
		return "", fmt.Errorf("resultstore: insert run: %w", err)
	}

	for _, res := range results {
		out, err := tx.ExecContext(ctx, `
			INSERT INTO analysis_results (run_id, source, format, error, convergence_exceeded)
			VALUES (?, ?, ?, ?, ?)
		`, run.ID, res.Source, res.Format, res.Error, res.ConvergenceExceeded)
		if err != nil {
			return "", fmt.Errorf("resultstore: insert result for %s: %w", res.Source, err)
		}
		resultID, err := out.LastInsertId()
		if err != nil {
			return "", fmt.Errorf("resultstore: result ID for %s: %w", res.Source, err)
		}

		symbols := make([]string, 0, len(res.Parameters))
		for sym := range res.Parameters {
			symbols = append(symbols, sym)
		}
		sort.Strings(symbols)
		for _, sym := range symbols {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO analysis_parameters (result_id, symbol, value)
				VALUES (?, ?, ?)
			`, resultID, sym, res.Parameters[sym])
			if err != nil {
				return "", fmt.Errorf("resultstore: insert parameter %s for %s: %w", sym, res.Source, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("resultstore: commit run: %w", err)
	}
	monitoring.Logf("stored run %s: %d analysed, %d failed", run.ID, analysed, failed)
	return run.ID, nil
}

// GetRun loads a run and its per-file results.
func (s *Store) GetRun(ctx context.Context, id string) (Run, []FileResult, error) {
	var (
		run       Run
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, filter_type, cutoff_um, leveling_order, analysed_count, failed_count
		FROM analysis_runs WHERE id = ?
	`, id).Scan(&run.ID, &createdAt, &run.FilterType, &run.CutoffUM, &run.LevelingOrder, &run.AnalysedCount, &run.FailedCount)
	if err != nil {
		return Run{}, nil, fmt.Errorf("resultstore: load run %s: %w", id, err)
	}
	run.CreatedAt = time.Unix(createdAt, 0)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, format, error, convergence_exceeded
		FROM analysis_results WHERE run_id = ? ORDER BY id
	`, id)
	if err != nil {
		return Run{}, nil, fmt.Errorf("resultstore: load results for %s: %w", id, err)
	}
	defer rows.Close()

	var (
		results   []FileResult
		resultIDs []int64
	)
	for rows.Next() {
		var (
			res FileResult
			rid int64
		)
		if err := rows.Scan(&rid, &res.Source, &res.Format, &res.Error, &res.ConvergenceExceeded); err != nil {
			return Run{}, nil, fmt.Errorf("resultstore: scan result row: %w", err)
		}
		results = append(results, res)
		resultIDs = append(resultIDs, rid)
	}
	if err := rows.Err(); err != nil {
		return Run{}, nil, fmt.Errorf("resultstore: iterate results: %w", err)
	}

	for i, rid := range resultIDs {
		params, err := s.loadParameters(ctx, rid)
		if err != nil {
			return Run{}, nil, err
		}
		results[i].Parameters = params
	}
	return run, results, nil
}

func (s *Store) loadParameters(ctx context.Context, resultID int64) (map[string]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, value FROM analysis_parameters WHERE result_id = ?
	`, resultID)
	if err != nil {
		return nil, fmt.Errorf("resultstore: load parameters: %w", err)
	}
	defer rows.Close()

	params := make(map[string]float64)
	for rows.Next() {
		var (
			sym string
			val float64
		)
		if err := rows.Scan(&sym, &val); err != nil {
			return nil, fmt.Errorf("resultstore: scan parameter row: %w", err)
		}
		params[sym] = val
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("resultstore: iterate parameters: %w", err)
	}
	return params, nil
}

// RecentRuns lists the newest runs, most recent first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, filter_type, cutoff_um, leveling_order, analysed_count, failed_count
		FROM analysis_runs ORDER BY created_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("resultstore: list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run       Run
			createdAt int64
		)
		if err := rows.Scan(&run.ID, &createdAt, &run.FilterType, &run.CutoffUM, &run.LevelingOrder, &run.AnalysedCount, &run.FailedCount); err != nil {
			return nil, fmt.Errorf("resultstore: scan run row: %w", err)
		}
		run.CreatedAt = time.Unix(createdAt, 0)
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("resultstore: iterate runs: %w", err)
	}
	return runs, nil
}
