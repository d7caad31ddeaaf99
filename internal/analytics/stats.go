// Package analytics reduces rush timelines to summaries and aggregates the
// run history into per-command statistics.
package analytics

import (
	"database/sql"
	"fmt"
	"time"
)

// CommandStats aggregates every recorded run of one command
type CommandStats struct {
	Command       string    `json:"command" yaml:"command"`
	Variant       string    `json:"variant" yaml:"variant"`
	Runs          int       `json:"runs" yaml:"runs"`
	Completed     int       `json:"completed" yaml:"completed"`
	Aborted       int       `json:"aborted" yaml:"aborted"`
	Failed        int       `json:"failed" yaml:"failed"`
	AvgPolls      float64   `json:"avgPolls" yaml:"avgPolls"`
	PeakVolume    float64   `json:"peakVolume" yaml:"peakVolume"`
	TotalHits     float64   `json:"totalHits" yaml:"totalHits"`
	TotalErrors   float64   `json:"totalErrors" yaml:"totalErrors"`
	TotalTimeouts float64   `json:"totalTimeouts" yaml:"totalTimeouts"`
	LastRun       time.Time `json:"lastRun" yaml:"lastRun"`
}

// Manager computes statistics over the history database
type Manager struct {
	db    *sql.DB
	cache *statsCache
}

// NewManager reads from db, which must already carry the history schema.
// Results are cached per profile for ttl; zero disables caching.
func NewManager(db *sql.DB, ttl time.Duration) *Manager {
	return &Manager{db: db, cache: newStatsCache(ttl)}
}

// PerCommand returns one row per (command, variant), most recently run first.
// An empty profile selects every profile.
func (m *Manager) PerCommand(profile string) ([]CommandStats, error) {
	if stats, ok := m.cache.get(profile); ok {
		return stats, nil
	}

	// Hits and errors are cumulative, so each run contributes its last point
	query := `
		WITH last_points AS (
			SELECT p.run_id, p.hits, p.errors, p.timeouts
			FROM points p
			JOIN (SELECT run_id, MAX(seq) AS seq FROM points GROUP BY run_id) l
				ON p.run_id = l.run_id AND p.seq = l.seq
		),
		peaks AS (
			SELECT run_id, MAX(volume) AS peak FROM points GROUP BY run_id
		)
		SELECT
			r.command,
			r.variant,
			COUNT(*) AS runs,
			SUM(CASE WHEN r.state = 'completed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN r.state = 'aborted' THEN 1 ELSE 0 END),
			SUM(CASE WHEN r.state = 'failed' THEN 1 ELSE 0 END),
			AVG(r.polls),
			COALESCE(MAX(pk.peak), 0),
			COALESCE(SUM(lp.hits), 0),
			COALESCE(SUM(lp.errors), 0),
			COALESCE(SUM(lp.timeouts), 0),
			MAX(r.started_at) AS last_run
		FROM runs r
		LEFT JOIN last_points lp ON lp.run_id = r.id
		LEFT JOIN peaks pk ON pk.run_id = r.id
		WHERE ? = '' OR r.profile_name = ?
		GROUP BY r.command, r.variant
		ORDER BY last_run DESC
	`

	rows, err := m.db.Query(query, profile, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats per command: %w", err)
	}
	defer rows.Close()

	stats := []CommandStats{}
	for rows.Next() {
		var s CommandStats
		var lastRun sql.NullString
		if err := rows.Scan(&s.Command, &s.Variant, &s.Runs, &s.Completed, &s.Aborted, &s.Failed,
			&s.AvgPolls, &s.PeakVolume, &s.TotalHits, &s.TotalErrors, &s.TotalTimeouts, &lastRun); err != nil {
			return nil, fmt.Errorf("failed to scan stats: %w", err)
		}
		if lastRun.Valid {
			s.LastRun = parseTimestamp(lastRun.String)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	m.cache.set(profile, stats)
	return stats, nil
}

// Invalidate drops cached statistics after the history changes
func (m *Manager) Invalidate() {
	m.cache.invalidate()
}

// sqliteTimestampFormats are the layouts go-sqlite3 writes time values in;
// an aggregate such as MAX() loses the column type and comes back as text.
var sqliteTimestampFormats = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func parseTimestamp(s string) time.Time {
	for _, layout := range sqliteTimestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
