package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"

	_ "modernc.org/sqlite"

	"IvyRanker/internal/model"
)

// SQLiteRecorder persists run history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id         TEXT PRIMARY KEY,
			timestamp      INTEGER NOT NULL,
			ranked         INTEGER,
			failed         INTEGER,
			crossing_count INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS symbol_results (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id        TEXT NOT NULL REFERENCES runs(run_id),
			rank          INTEGER,
			symbol        TEXT NOT NULL,
			three_month   REAL,
			six_month     REAL,
			one_year      REAL,
			rel_strength  REAL,
			fifty_day     REAL,
			two_hundred   REAL,
			fifty_above   INTEGER,
			crossed_today INTEGER,
			rsi14         REAL,
			position_52w  REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_run ON symbol_results(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_results_symbol ON symbol_results(symbol)`,

		`CREATE TABLE IF NOT EXISTS symbol_failures (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(run_id),
			symbol TEXT NOT NULL,
			kind   TEXT,
			error  TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_failures_run ON symbol_failures(run_id)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores a run with its ranked rows and failures in one transaction.
func (r *SQLiteRecorder) RecordRun(run *model.BatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO runs
		(run_id, timestamp, ranked, failed, crossing_count)
		VALUES (?,?,?,?,?)`,
		run.RunID, run.GeneratedAt.Unix(), len(run.Ranked), len(run.Failures), run.CrossingCount,
	); err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}

	for i, res := range run.Ranked {
		perf, snap, mc := res.Performance, res.Snapshot, res.Context
		if _, err := tx.Exec(`INSERT INTO symbol_results
			(run_id, rank, symbol, three_month, six_month, one_year, rel_strength,
			 fifty_day, two_hundred, fifty_above, crossed_today, rsi14, position_52w)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			run.RunID, i+1, res.Symbol,
			perf.ThreeMonth, perf.SixMonth, perf.OneYear, perf.RelativeStrength,
			snap.FiftyDay, snap.TwoHundredDay, snap.FiftyAboveTwoHundred, snap.CrossedToday,
			mc.RSI14, mc.Position52w,
		); err != nil {
			return fmt.Errorf("insert result %s: %w", res.Symbol, err)
		}
	}

	for _, f := range run.Failures {
		if _, err := tx.Exec(`INSERT INTO symbol_failures
			(run_id, symbol, kind, error) VALUES (?,?,?,?)`,
			run.RunID, f.Symbol, f.Kind(), f.Err.Error(),
		); err != nil {
			return fmt.Errorf("insert failure %s: %w", f.Symbol, err)
		}
	}

	return tx.Commit()
}

// LatestRuns returns up to limit runs, newest first.
func (r *SQLiteRecorder) LatestRuns(limit int) ([]RunSummary, error) {
	rows, err := r.db.Query(`SELECT run_id, timestamp, ranked, failed, crossing_count
		FROM runs ORDER BY timestamp DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.RunID, &s.Timestamp, &s.Ranked, &s.Failed, &s.CrossingCount); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
