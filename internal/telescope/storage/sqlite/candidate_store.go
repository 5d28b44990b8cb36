package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/banshee-data/trackfinder/internal/telescope"
)

// StoredState is one state row of a persisted candidate.
type StoredState struct {
	Index     int       `json:"index"`
	Plane     int       `json:"plane"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Z         float64   `json:"z"`
	Tx        float64   `json:"tx"`
	Ty        float64   `json:"ty"`
	QOverP    float64   `json:"q_over_p"`
	ArcLength float64   `json:"arc_length"`
	HitID     *int64    `json:"hit_id,omitempty"`
	Cov       []float64 `json:"cov,omitempty"` // upper triangle, row major
}

// StoredCandidate is a persisted track candidate.
type StoredCandidate struct {
	CandidateID string        `json:"candidate_id"`
	RunID       string        `json:"run_id"`
	Event       int64         `json:"event"`
	Ordinal     int           `json:"ordinal"`
	SeedPlane   int           `json:"seed_plane"`
	HitCount    int           `json:"hit_count"`
	States      []StoredState `json:"states"`
}

// CandidateStore provides persistence for final track candidates.
type CandidateStore struct {
	db *sql.DB
}

// NewCandidateStore creates a new CandidateStore.
func NewCandidateStore(db *sql.DB) *CandidateStore {
	return &CandidateStore{db: db}
}

// InsertEventCandidates stores the final candidates of one event in a
// single transaction and returns their new ids in input order.
func (s *CandidateStore) InsertEventCandidates(runID string, event int64, tracks []*telescope.Track) ([]string, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin candidate insert: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		id := uuid.New().String()
		_, err := tx.Exec(`
			INSERT INTO track_candidates (candidate_id, run_id, event_number, ordinal, seed_plane, hit_count)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, runID, event, t.Ordinal, t.SeedPlane, t.HitCount())
		if err != nil {
			return nil, fmt.Errorf("insert candidate %d of event %d: %w", t.Ordinal, event, err)
		}
		for i := range t.States {
			if err := insertState(tx, id, i, &t.States[i]); err != nil {
				return nil, fmt.Errorf("insert state %d of candidate %d: %w", i, t.Ordinal, err)
			}
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit candidates: %w", err)
	}
	return ids, nil
}

func insertState(tx *sql.Tx, candidateID string, index int, st *telescope.State) error {
	var hitID *int64
	if st.Hit != nil {
		id := st.Hit.ID
		hitID = &id
	}
	var cov sql.NullString
	if st.Cov != nil {
		n := st.Cov.SymmetricDim()
		upper := make([]float64, 0, n*(n+1)/2)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				upper = append(upper, st.Cov.At(i, j))
			}
		}
		b, err := json.Marshal(upper)
		if err != nil {
			return err
		}
		cov = sql.NullString{String: string(b), Valid: true}
	}
	_, err := tx.Exec(`
		INSERT INTO candidate_states (
			candidate_id, state_index, plane, x, y, z, tx, ty, q_over_p,
			arc_length, hit_id, cov_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		candidateID, index, st.Location,
		st.PositionGlobal.X, st.PositionGlobal.Y, st.PositionGlobal.Z,
		st.Tx, st.Ty, st.QOverP, st.ArcLength,
		nullInt64(hitID), cov,
	)
	return err
}

// ListByRun returns the candidates of a run ordered by event and ordinal,
// with their states.
func (s *CandidateStore) ListByRun(runID string) ([]StoredCandidate, error) {
	rows, err := s.db.Query(`
		SELECT candidate_id, run_id, event_number, ordinal, seed_plane, hit_count
		FROM track_candidates WHERE run_id = ?
		ORDER BY event_number, ordinal
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	var out []StoredCandidate
	for rows.Next() {
		var c StoredCandidate
		if err := rows.Scan(&c.CandidateID, &c.RunID, &c.Event, &c.Ordinal, &c.SeedPlane, &c.HitCount); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range out {
		states, err := s.states(out[i].CandidateID)
		if err != nil {
			return nil, err
		}
		out[i].States = states
	}
	return out, nil
}

func (s *CandidateStore) states(candidateID string) ([]StoredState, error) {
	rows, err := s.db.Query(`
		SELECT state_index, plane, x, y, z, tx, ty, q_over_p, arc_length, hit_id, cov_json
		FROM candidate_states WHERE candidate_id = ?
		ORDER BY state_index
	`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("list states: %w", err)
	}
	defer rows.Close()

	var out []StoredState
	for rows.Next() {
		var (
			st    StoredState
			hitID sql.NullInt64
			cov   sql.NullString
		)
		if err := rows.Scan(&st.Index, &st.Plane, &st.X, &st.Y, &st.Z, &st.Tx, &st.Ty,
			&st.QOverP, &st.ArcLength, &hitID, &cov); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		if hitID.Valid {
			id := hitID.Int64
			st.HitID = &id
		}
		if cov.Valid {
			if err := json.Unmarshal([]byte(cov.String), &st.Cov); err != nil {
				return nil, fmt.Errorf("decode covariance of %s/%d: %w", candidateID, st.Index, err)
			}
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// CountByRun returns the number of candidates stored for a run.
func (s *CandidateStore) CountByRun(runID string) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM track_candidates WHERE run_id = ?`, runID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count candidates: %w", err)
	}
	return n, nil
}
