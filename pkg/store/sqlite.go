package store

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/psantana5/boxbot/pkg/models"
)

// SQLiteStore is a SQLite-based implementation of the run store
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// - _journal_mode=WAL: readers do not block the recording controller
	// - _busy_timeout=10000: wait up to 10 seconds when the database is locked
	// - _synchronous=NORMAL: balance between safety and performance
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=10000&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		controller TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		target TEXT,
		final_state TEXT,
		ticks INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS transitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id),
		tick INTEGER NOT NULL,
		from_state TEXT NOT NULL,
		to_state TEXT NOT NULL,
		distance REAL,
		at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transitions_run ON transitions(run_id, tick);
	`

	_, err := s.db.Exec(schema)
	return err
}

// CreateRun inserts a new run
func (s *SQLiteStore) CreateRun(run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO runs (id, controller, started_at, target, final_state, ticks)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Controller, run.StartedAt.UTC(), run.Target, string(run.FinalState), run.Ticks,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// FinishRun marks a run as ended
func (s *SQLiteStore) FinishRun(id string, endedAt time.Time, finalState models.RobotState, ticks int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(`
		UPDATE runs SET ended_at = ?, final_state = ?, ticks = ? WHERE id = ?`,
		endedAt.UTC(), string(finalState), ticks, id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRunNotFound
	}
	return nil
}

const runColumns = `id, controller, started_at, ended_at, target, final_state, ticks`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run        Run
		endedAt    sql.NullTime
		target     sql.NullString
		finalState sql.NullString
	)
	if err := row.Scan(&run.ID, &run.Controller, &run.StartedAt, &endedAt, &target, &finalState, &run.Ticks); err != nil {
		return nil, err
	}
	if endedAt.Valid {
		run.EndedAt = endedAt.Time
	}
	run.Target = target.String
	run.FinalState = models.RobotState(finalState.String)
	return &run, nil
}

// GetRun retrieves a run by ID
func (s *SQLiteStore) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns every run, oldest first
func (s *SQLiteStore) ListRuns() ([]*Run, error) {
	rows, err := s.db.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// AddTransition records a state change
func (s *SQLiteStore) AddTransition(tr *Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// SQLite has no representation for infinity
	var distance sql.NullFloat64
	if !math.IsInf(tr.Distance, 0) && !math.IsNaN(tr.Distance) {
		distance = sql.NullFloat64{Float64: tr.Distance, Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO transitions (run_id, tick, from_state, to_state, distance, at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		tr.RunID, tr.Tick, string(tr.From), string(tr.To), distance, tr.At.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to add transition: %w", err)
	}
	return nil
}

// GetTransitions returns a run's transitions in tick order
func (s *SQLiteStore) GetTransitions(runID string) ([]*Transition, error) {
	if _, err := s.GetRun(runID); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT run_id, tick, from_state, to_state, distance, at
		FROM transitions WHERE run_id = ? ORDER BY tick, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transitions: %w", err)
	}
	defer rows.Close()

	var out []*Transition
	for rows.Next() {
		var (
			tr       Transition
			from, to string
			distance sql.NullFloat64
		)
		if err := rows.Scan(&tr.RunID, &tr.Tick, &from, &to, &distance, &tr.At); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		tr.From = models.RobotState(from)
		tr.To = models.RobotState(to)
		tr.Distance = math.Inf(1)
		if distance.Valid {
			tr.Distance = distance.Float64
		}
		out = append(out, &tr)
	}
	return out, rows.Err()
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
