// Package results keeps a history of conformance runs in SQLite.
package results

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"fortio.org/safecast"
	"github.com/chazu/jcore/harness"
	"github.com/tliron/commonlog"

	_ "modernc.org/sqlite"
)

var log = commonlog.GetLogger("jcore.results")

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrRunNotFound indicates the requested run doesn't exist
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	suite       TEXT NOT NULL,
	started     TEXT NOT NULL,
	duration_ns INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS results (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq         INTEGER NOT NULL,
	unit        TEXT NOT NULL,
	class       TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	status      INTEGER NOT NULL,
	fault       TEXT NOT NULL,
	message     TEXT NOT NULL,
	origin      TEXT NOT NULL,
	detail      TEXT NOT NULL,
	duration_ns INTEGER NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE INDEX IF NOT EXISTS runs_started ON runs(started);
`

// Store is the run history database.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens or creates the database at path. The path ":memory:" opens a
// private in-memory database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA foreign_keys = ON"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	log.Debugf("opened %s", path)
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Save records a report. Saving a run ID again replaces the earlier record.
func (s *Store) Save(rep *harness.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM runs WHERE id = ?", rep.RunID); err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	_, err = tx.Exec(
		"INSERT INTO runs (id, suite, started, duration_ns) VALUES (?, ?, ?, ?)",
		rep.RunID, rep.Suite, rep.Started.UTC().Format(timeLayout), int64(rep.Duration),
	)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO results
		(run_id, seq, unit, class, outcome, status, fault, message, origin, detail, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("saving results: %w", err)
	}
	defer stmt.Close()
	for i, r := range rep.Results {
		_, err := stmt.Exec(rep.RunID, i, r.Unit, r.Class, r.Outcome.String(), r.Status,
			r.Fault, r.Message, r.Origin, r.Detail, int64(r.Duration))
		if err != nil {
			return fmt.Errorf("saving result %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	log.Debugf("saved run %s (%d results)", rep.RunID, len(rep.Results))
	return nil
}

// Load retrieves a run with its results.
func (s *Store) Load(runID string) (*harness.Report, error) {
	rep := &harness.Report{RunID: runID}
	var started string
	var dur int64
	err := s.db.QueryRow("SELECT suite, started, duration_ns FROM runs WHERE id = ?", runID).
		Scan(&rep.Suite, &started, &dur)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, fmt.Errorf("querying run: %w", err)
	}
	if rep.Started, err = time.Parse(timeLayout, started); err != nil {
		return nil, fmt.Errorf("run %s: bad start time: %w", runID, err)
	}
	rep.Duration = time.Duration(dur)

	rows, err := s.db.Query(`SELECT unit, class, outcome, status, fault, message, origin, detail, duration_ns
		FROM results WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r harness.Result
		var outcome string
		var status, rdur int64
		if err := rows.Scan(&r.Unit, &r.Class, &outcome, &status, &r.Fault, &r.Message, &r.Origin, &r.Detail, &rdur); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		if r.Outcome, err = harness.ParseOutcome(outcome); err != nil {
			return nil, fmt.Errorf("run %s: %w", runID, err)
		}
		if r.Status, err = safecast.Conv[int32](status); err != nil {
			return nil, fmt.Errorf("run %s: status %d: %w", runID, status, err)
		}
		r.Duration = time.Duration(rdur)
		rep.Results = append(rep.Results, r)
	}
	return rep, rows.Err()
}

// RunSummary is one line of run history.
type RunSummary struct {
	RunID    string
	Suite    string
	Started  time.Time
	Duration time.Duration
	Passed   int
	Total    int
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(limit int) ([]RunSummary, error) {
	rows, err := s.db.Query(`SELECT r.id, r.suite, r.started, r.duration_ns,
			COALESCE(SUM(x.outcome IN ('pass', 'skipped')), 0), COUNT(x.seq)
		FROM runs r LEFT JOIN results x ON x.run_id = r.id
		GROUP BY r.id
		ORDER BY r.started DESC, r.id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var rs RunSummary
		var started string
		var dur int64
		if err := rows.Scan(&rs.RunID, &rs.Suite, &started, &dur, &rs.Passed, &rs.Total); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if rs.Started, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("run %s: bad start time: %w", rs.RunID, err)
		}
		rs.Duration = time.Duration(dur)
		out = append(out, rs)
	}
	return out, rows.Err()
}
