package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run statuses.
const (
	RunRunning  = "running"
	RunComplete = "complete"
	RunAborted  = "aborted"
)

// RunCounts are the per-run totals recorded when a run finishes.
type RunCounts struct {
	Events             int `json:"events"`
	Processed          int `json:"processed"`
	SkippedMissing     int `json:"skipped_missing"`
	Seeds              int `json:"seeds"`
	RawCandidates      int `json:"raw_candidates"`
	FilteredCandidates int `json:"filtered_candidates"`
	FinalCandidates    int `json:"final_candidates"`
}

// TrackingRun is one invocation of the candidate former over an event file.
type TrackingRun struct {
	RunID        string     `json:"run_id"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Status       string     `json:"status"`
	Error        string     `json:"error,omitempty"`
	ConfigJSON   []byte     `json:"config"`
	GeometryPath string     `json:"geometry_path,omitempty"`
	EventsPath   string     `json:"events_path,omitempty"`
	Counts       RunCounts  `json:"counts"`
}

// RunStore provides persistence for tracking runs.
type RunStore struct {
	db *sql.DB
}

// NewRunStore creates a new RunStore.
func NewRunStore(db *sql.DB) *RunStore {
	return &RunStore{db: db}
}

// InsertRun records a new run. An empty RunID is replaced by a UUID, a zero
// StartedAt by the current time and an empty Status by RunRunning.
func (s *RunStore) InsertRun(run *TrackingRun) error {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Status == "" {
		run.Status = RunRunning
	}
	if len(run.ConfigJSON) == 0 {
		run.ConfigJSON = []byte("{}")
	}

	_, err := s.db.Exec(`
		INSERT INTO tracking_runs (
			run_id, started_at, status, config_json, geometry_path, events_path
		) VALUES (?, ?, ?, ?, ?, ?)
	`,
		run.RunID,
		run.StartedAt.UnixNano(),
		run.Status,
		string(run.ConfigJSON),
		nullString(run.GeometryPath),
		nullString(run.EventsPath),
	)
	if err != nil {
		return fmt.Errorf("insert tracking run: %w", err)
	}
	return nil
}

// CompleteRun stores the final counts of a run. A non-nil runErr marks the
// run aborted and keeps its message.
func (s *RunStore) CompleteRun(runID string, counts RunCounts, runErr error) error {
	status, msg := RunComplete, ""
	if runErr != nil {
		status, msg = RunAborted, runErr.Error()
	}
	res, err := s.db.Exec(`
		UPDATE tracking_runs SET
			completed_at = ?, status = ?, error = ?,
			events = ?, processed = ?, skipped_missing = ?, seeds = ?,
			raw_candidates = ?, filtered_candidates = ?, final_candidates = ?
		WHERE run_id = ?
	`,
		time.Now().UnixNano(), status, nullString(msg),
		counts.Events, counts.Processed, counts.SkippedMissing, counts.Seeds,
		counts.RawCandidates, counts.FilteredCandidates, counts.FinalCandidates,
		runID,
	)
	if err != nil {
		return fmt.Errorf("complete tracking run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("complete tracking run %s: %w", runID, sql.ErrNoRows)
	}
	return nil
}

// GetRun loads one run. A missing run yields an error wrapping
// sql.ErrNoRows.
func (s *RunStore) GetRun(runID string) (*TrackingRun, error) {
	var (
		run          TrackingRun
		startedAt    int64
		completedAt  sql.NullInt64
		runErr       sql.NullString
		configJSON   string
		geometryPath sql.NullString
		eventsPath   sql.NullString
	)
	err := s.db.QueryRow(`
		SELECT run_id, started_at, completed_at, status, error, config_json,
		       geometry_path, events_path, events, processed, skipped_missing,
		       seeds, raw_candidates, filtered_candidates, final_candidates
		FROM tracking_runs WHERE run_id = ?
	`, runID).Scan(
		&run.RunID, &startedAt, &completedAt, &run.Status, &runErr, &configJSON,
		&geometryPath, &eventsPath, &run.Counts.Events, &run.Counts.Processed,
		&run.Counts.SkippedMissing, &run.Counts.Seeds, &run.Counts.RawCandidates,
		&run.Counts.FilteredCandidates, &run.Counts.FinalCandidates,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tracking run %s: %w", runID, err)
	}
	if err != nil {
		return nil, fmt.Errorf("get tracking run: %w", err)
	}

	run.StartedAt = time.Unix(0, startedAt)
	if completedAt.Valid {
		t := time.Unix(0, completedAt.Int64)
		run.CompletedAt = &t
	}
	run.Error = runErr.String
	run.ConfigJSON = []byte(configJSON)
	run.GeometryPath = geometryPath.String
	run.EventsPath = eventsPath.String
	return &run, nil
}

// ListRuns returns every run id, newest first.
func (s *RunStore) ListRuns() ([]string, error) {
	rows, err := s.db.Query(`SELECT run_id FROM tracking_runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list tracking runs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tracking run: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
