package sqlite

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/trackfinder/internal/telescope"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "tracking.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenAppliesMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracking.db")
	db, err := Open(path)
	require.NoError(t, err)

	version, dirty, err := MigrateVersion(db)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
	require.NoError(t, db.Close())

	// Re-opening an up-to-date database is a no-op.
	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('tracking_runs','track_candidates','candidate_states')`).Scan(&n))
	assert.Equal(t, 3, n)
}

func TestRunStoreLifecycle(t *testing.T) {
	store := NewRunStore(openTestDB(t))

	run := &TrackingRun{ConfigJSON: []byte(`{"window_size":1}`), GeometryPath: "geom.yaml"}
	require.NoError(t, store.InsertRun(run))
	require.NotEmpty(t, run.RunID, "expected RunID to be generated")
	assert.Equal(t, RunRunning, run.Status)

	got, err := store.GetRun(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, RunRunning, got.Status)
	assert.Nil(t, got.CompletedAt)
	assert.JSONEq(t, `{"window_size":1}`, string(got.ConfigJSON))
	assert.Equal(t, "geom.yaml", got.GeometryPath)
	assert.Empty(t, got.EventsPath)
	assert.WithinDuration(t, run.StartedAt, got.StartedAt, time.Microsecond)

	counts := RunCounts{Events: 10, Processed: 9, SkippedMissing: 1, Seeds: 20, RawCandidates: 20, FilteredCandidates: 12, FinalCandidates: 11}
	require.NoError(t, store.CompleteRun(run.RunID, counts, nil))

	got, err = store.GetRun(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, RunComplete, got.Status)
	assert.Equal(t, counts, got.Counts)
	require.NotNil(t, got.CompletedAt)

	ids, err := store.ListRuns()
	require.NoError(t, err)
	assert.Equal(t, []string{run.RunID}, ids)
}

func TestRunStoreAbortedRun(t *testing.T) {
	store := NewRunStore(openTestDB(t))
	run := &TrackingRun{RunID: "run-1"}
	require.NoError(t, store.InsertRun(run))
	require.NoError(t, store.CompleteRun("run-1", RunCounts{Events: 3}, errors.New("geometry inconsistency at event 2 plane 3")))

	got, err := store.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, RunAborted, got.Status)
	assert.Contains(t, got.Error, "event 2 plane 3")
}

func TestRunStoreMissingRun(t *testing.T) {
	store := NewRunStore(openTestDB(t))
	_, err := store.GetRun("nope")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.True(t, errors.Is(store.CompleteRun("nope", RunCounts{}, nil), sql.ErrNoRows))
}

func storedTrack(ordinal int, hitIDs ...int64) *telescope.Track {
	tr := &telescope.Track{Ordinal: ordinal}
	for plane, id := range hitIDs {
		cov := mat.NewSymDense(telescope.NumParams, nil)
		for i := 0; i < telescope.NumParams; i++ {
			cov.SetSym(i, i, float64(i+1))
		}
		cov.SetSym(telescope.ParamX, telescope.ParamTx, 0.5)
		st := telescope.State{
			Location:       plane,
			PositionGlobal: r3.Vec{X: 0.1 * float64(plane), Y: -0.2, Z: 150 * float64(plane)},
			Tx:             0.001,
			QOverP:         -0.2,
			ArcLength:      150,
			Cov:            cov,
		}
		if id != 0 {
			st.AttachHit(&telescope.Hit{ID: id, Plane: plane})
		}
		tr.States = append(tr.States, st)
	}
	return tr
}

func TestCandidateStoreRoundTrip(t *testing.T) {
	db := openTestDB(t)
	runs := NewRunStore(db)
	run := &TrackingRun{}
	require.NoError(t, runs.InsertRun(run))

	store := NewCandidateStore(db)
	ids, err := store.InsertEventCandidates(run.RunID, 7, []*telescope.Track{
		storedTrack(0, 1, 2, 3),
		storedTrack(2, 4, 0, 6),
	})
	require.NoError(t, err)
	require.Len(t, ids, 2)

	_, err = store.InsertEventCandidates(run.RunID, 3, []*telescope.Track{storedTrack(0, 9, 10, 11)})
	require.NoError(t, err)

	got, err := store.ListByRun(run.RunID)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Ordered by event then ordinal.
	assert.Equal(t, int64(3), got[0].Event)
	assert.Equal(t, int64(7), got[1].Event)
	assert.Equal(t, ids[0], got[1].CandidateID)
	assert.Equal(t, 2, got[2].Ordinal)
	assert.Equal(t, 2, got[2].HitCount)

	states := got[2].States
	require.Len(t, states, 3)
	require.NotNil(t, states[0].HitID)
	assert.Equal(t, int64(4), *states[0].HitID)
	assert.Nil(t, states[1].HitID)
	assert.InDelta(t, 300, states[2].Z, 1e-12)
	assert.Equal(t, -0.2, states[2].QOverP)
	require.Len(t, states[0].Cov, 15)
	assert.Equal(t, 1.0, states[0].Cov[0])
	assert.Equal(t, 0.5, states[0].Cov[2]) // (x, tx)

	n, err := store.CountByRun(run.RunID)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCandidateStoreRejectsUnknownRun(t *testing.T) {
	store := NewCandidateStore(openTestDB(t))
	_, err := store.InsertEventCandidates("missing", 1, []*telescope.Track{storedTrack(0, 1)})
	assert.Error(t, err, "foreign key on run_id")

	n, err := store.CountByRun("missing")
	require.NoError(t, err)
	assert.Zero(t, n, "failed insert is rolled back")
}
