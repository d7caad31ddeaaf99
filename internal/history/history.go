package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/studiowebux/blitzbar/internal/migrations"
	"github.com/studiowebux/blitzbar/internal/result"
)

// Run is one recorded execution
type Run struct {
	ID         string     `json:"id" yaml:"id"`
	Command    string     `json:"command" yaml:"command"`
	Variant    string     `json:"variant" yaml:"variant"`
	Profile    string     `json:"profile,omitempty" yaml:"profile,omitempty"`
	Endpoint   string     `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Region     string     `json:"region,omitempty" yaml:"region,omitempty"`
	JobID      string     `json:"jobId,omitempty" yaml:"jobId,omitempty"`
	State      string     `json:"state" yaml:"state"`
	Error      string     `json:"error,omitempty" yaml:"error,omitempty"`
	Polls      int        `json:"polls" yaml:"polls"`
	StartedAt  time.Time  `json:"startedAt" yaml:"startedAt"`
	EndedAt    *time.Time `json:"endedAt,omitempty" yaml:"endedAt,omitempty"`
	SpecJSON   string     `json:"spec" yaml:"spec"`
	ResultJSON string     `json:"result,omitempty" yaml:"result,omitempty"`
}

// Filter narrows List results
type Filter struct {
	Profile string
	Variant string
	Limit   int
}

// Manager stores runs and their rush timelines in SQLite
type Manager struct {
	db *sql.DB
}

// NewManager opens (and migrates) the history database at dbPath.
// ":memory:" opens a private in-memory database.
func NewManager(dbPath string) (*Manager, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	// One connection serializes writers from concurrent batch runs and keeps
	// an in-memory database alive for the manager's lifetime
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Manager{db: db}, nil
}

// DB exposes the underlying database for read-only reporting
func (m *Manager) DB() *sql.DB { return m.db }

// Save inserts run and its timeline points in one transaction. An empty
// run.ID is replaced with a new UUID.
func (m *Manager) Save(run *Run, points []result.Point) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var ended any
	if run.EndedAt != nil {
		ended = *run.EndedAt
	}
	_, err = tx.Exec(`
		INSERT INTO runs (
			id, command, variant, profile_name, endpoint, region, job_id, state,
			error, polls, started_at, ended_at, spec_json, result_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Command, run.Variant, run.Profile, run.Endpoint, run.Region, run.JobID, run.State,
		run.Error, run.Polls, run.StartedAt, ended, run.SpecJSON, run.ResultJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}

	if len(points) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO points (
				run_id, seq, timestamp, duration, total, hits, errors, timeouts, volume, tx_bytes, rx_bytes
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare point insert: %w", err)
		}
		defer stmt.Close()

		for i, p := range points {
			var ts any
			if p.Timestamp != nil {
				ts = *p.Timestamp
			}
			if _, err := stmt.Exec(run.ID, i, ts, p.Duration, p.Total, p.Hits, p.Errors, p.Timeouts, p.Volume, p.TxBytes, p.RxBytes); err != nil {
				return fmt.Errorf("failed to save point %d: %w", i, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

const runColumns = `id, command, variant, profile_name, endpoint, region, job_id, state,
	error, polls, started_at, ended_at, spec_json, result_json`

// List returns runs newest first
func (m *Manager) List(f Filter) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs"
	var where []string
	var args []any
	if f.Profile != "" {
		where = append(where, "profile_name = ?")
		args = append(args, f.Profile)
	}
	if f.Variant != "" {
		where = append(where, "variant = ?")
		args = append(args, f.Variant)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := m.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// Get returns the run whose id equals or uniquely starts with id
func (m *Manager) Get(id string) (*Run, error) {
	rows, err := m.db.Query("SELECT "+runColumns+" FROM runs WHERE id = ? OR id LIKE ? LIMIT 2", id, id+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	defer rows.Close()

	runs, err := scanRuns(rows)
	if err != nil {
		return nil, err
	}
	switch {
	case len(runs) == 0:
		return nil, fmt.Errorf("run not found: %s", id)
	case len(runs) > 1:
		for i := range runs {
			if runs[i].ID == id {
				return &runs[i], nil
			}
		}
		return nil, fmt.Errorf("ambiguous run id: %s", id)
	}
	return &runs[0], nil
}

// Points returns the stored rush timeline of a run in order
func (m *Manager) Points(runID string) ([]result.Point, error) {
	rows, err := m.db.Query(`
		SELECT timestamp, duration, total, hits, errors, timeouts, volume, tx_bytes, rx_bytes
		FROM points WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}
	defer rows.Close()

	points := []result.Point{}
	for rows.Next() {
		var p result.Point
		var ts sql.NullTime
		if err := rows.Scan(&ts, &p.Duration, &p.Total, &p.Hits, &p.Errors, &p.Timeouts, &p.Volume, &p.TxBytes, &p.RxBytes); err != nil {
			return nil, fmt.Errorf("failed to scan point: %w", err)
		}
		if ts.Valid {
			t := ts.Time
			p.Timestamp = &t
		}
		p.Steps = []result.PointStep{}
		points = append(points, p)
	}
	return points, rows.Err()
}

// Delete removes one run and its points
func (m *Manager) Delete(id string) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM points WHERE run_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete points: %w", err)
	}
	res, err := tx.Exec("DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return tx.Commit()
}

// Clear removes every run
func (m *Manager) Clear() error {
	if _, err := m.db.Exec("DELETE FROM points; DELETE FROM runs;"); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// GetCount returns the number of recorded runs
func (m *Manager) GetCount() (int, error) {
	var count int
	if err := m.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

// Close closes the database
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	runs := []Run{}
	for rows.Next() {
		var r Run
		var profile, endpoint, region, jobID, errMsg, resultJSON sql.NullString
		var ended sql.NullTime
		if err := rows.Scan(&r.ID, &r.Command, &r.Variant, &profile, &endpoint, &region, &jobID, &r.State,
			&errMsg, &r.Polls, &r.StartedAt, &ended, &r.SpecJSON, &resultJSON); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Profile = profile.String
		r.Endpoint = endpoint.String
		r.Region = region.String
		r.JobID = jobID.String
		r.Error = errMsg.String
		r.ResultJSON = resultJSON.String
		if ended.Valid {
			t := ended.Time
			r.EndedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
