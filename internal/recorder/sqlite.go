package recorder

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"ValueSentinel/internal/model"
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

	// WAL mode so dashboards can read while a run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp     INTEGER NOT NULL,
			processed     INTEGER,
			qualified     INTEGER,
			fetch_failed  INTEGER,
			duration_ms   INTEGER,
			persisted     INTEGER,
			notified      INTEGER,
			notify_error  TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON runs(timestamp)`,

		`CREATE TABLE IF NOT EXISTS run_qualifiers (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			run_timestamp  INTEGER NOT NULL,
			symbol         TEXT NOT NULL,
			price          REAL,
			price_to_book  REAL,
			debt_to_equity REAL,
			net_margin     REAL,
			above_3y_low   REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_qualifiers_ts ON run_qualifiers(run_timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRun stores the run summary plus one row per qualifier.
func (r *SQLiteRecorder) RecordRun(res *model.RunResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := res.RunTimestamp.Unix()
	st := res.Stats

	_, err := r.db.Exec(`INSERT INTO runs
		(timestamp, processed, qualified, fetch_failed, duration_ms, persisted, notified, notify_error)
		VALUES (?,?,?,?,?,?,?,?)`,
		ts, st.Processed, st.Qualified, st.FetchFailed,
		st.Duration.Milliseconds(), boolInt(st.Persisted), boolInt(st.Notified), st.NotifyErr,
	)
	if err != nil {
		return err
	}

	for _, d := range res.Qualifiers() {
		rec := d.Record
		if rec == nil {
			continue
		}
		pb, _ := rec.PriceToBook()
		de, _ := rec.DebtToEquity()
		above, _ := rec.PctAboveThreeYearLow()
		if _, err := r.db.Exec(`INSERT INTO run_qualifiers
			(run_timestamp, symbol, price, price_to_book, debt_to_equity, net_margin, above_3y_low)
			VALUES (?,?,?,?,?,?,?)`,
			ts, d.Symbol, rec.CurrentPrice, pb, de, rec.NetMargin, above,
		); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
