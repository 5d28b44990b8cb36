package telescope

import (
	"errors"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestTrackHitCountAndHits(t *testing.T) {
	h1 := &Hit{ID: 1, Plane: 0}
	h2 := &Hit{ID: 2, Plane: 2}
	tr := &Track{States: []State{{Location: 0, Hit: h1}, {Location: 1}, {Location: 2, Hit: h2}}}

	if got := tr.HitCount(); got != 2 {
		t.Errorf("HitCount() = %d, want 2", got)
	}
	hits := tr.Hits()
	if len(hits) != 2 || hits[0] != h1 || hits[1] != h2 {
		t.Errorf("Hits() = %v, want [h1 h2]", hits)
	}
	if tr.Last().Location != 2 {
		t.Errorf("Last().Location = %d, want 2", tr.Last().Location)
	}
	if (&Track{}).Last() != nil {
		t.Error("Last() on empty track should be nil")
	}
}

func TestTrackCheckNoDuplicateHits(t *testing.T) {
	h := &Hit{ID: 7}
	ok := &Track{States: []State{{Hit: h}, {}, {Hit: &Hit{ID: 8}}}}
	if err := ok.CheckNoDuplicateHits(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Same identity through distinct pointers is still a duplicate.
	dup := &Track{Ordinal: 3, States: []State{{Hit: h}, {Hit: &Hit{ID: 7}}}}
	err := dup.CheckNoDuplicateHits()
	if err == nil {
		t.Fatal("expected duplicate hit error")
	}
	if !strings.Contains(err.Error(), "hit 7") {
		t.Errorf("error %q should name the hit", err)
	}
}

func TestStateCloneCopiesCovariance(t *testing.T) {
	cov := mat.NewSymDense(NumParams, nil)
	cov.SetSym(0, 0, 4)
	s := State{Location: 1, Cov: cov, Hit: &Hit{ID: 1}}

	c := s.Clone()
	c.Cov.SetSym(0, 0, 9)

	if s.Cov.At(0, 0) != 4 {
		t.Errorf("original covariance modified: %v", s.Cov.At(0, 0))
	}
	if c.Hit != s.Hit {
		t.Error("clone should share the hit reference")
	}
}

func TestStateVectorRoundTrip(t *testing.T) {
	var s State
	s.PositionGlobal.Z = 150
	s.SetVector([]float64{1, 2, 0.01, -0.02, 0.2})

	v := s.Vector()
	want := []float64{1, 2, 0.01, -0.02, 0.2}
	for i := range want {
		if v[i] != want[i] {
			t.Errorf("Vector()[%d] = %v, want %v", i, v[i], want[i])
		}
	}
	if s.PositionGlobal.Z != 150 {
		t.Errorf("SetVector changed z to %v", s.PositionGlobal.Z)
	}
}

func TestSeedMapOrder(t *testing.T) {
	m := NewSeedMap([]int{3, 0})
	m.Add(0, State{Location: 0})
	m.Add(3, State{Location: 3})
	m.Add(3, State{Location: 3})

	if got := m.Planes(); len(got) != 2 || got[0] != 3 || got[1] != 0 {
		t.Errorf("Planes() = %v, want [3 0]", got)
	}
	if m.Len() != 3 {
		t.Errorf("Len() = %d, want 3", m.Len())
	}
	if len(m.Seeds(3)) != 2 || len(m.Seeds(5)) != 0 {
		t.Errorf("unexpected seeds: plane3=%d plane5=%d", len(m.Seeds(3)), len(m.Seeds(5)))
	}
}

func TestEventArenaReset(t *testing.T) {
	a := NewEventArena()
	a.Reset(1)
	t0 := a.NewTrack(0)
	t0.States = append(t0.States, State{Location: 0}, State{Location: 1})
	t1 := a.NewTrack(0)
	if t0.Ordinal != 0 || t1.Ordinal != 1 {
		t.Fatalf("ordinals = %d,%d, want 0,1", t0.Ordinal, t1.Ordinal)
	}
	if len(a.Tracks()) != 2 {
		t.Fatalf("Tracks() len = %d, want 2", len(a.Tracks()))
	}

	a.Reset(2)
	if a.Event != 2 || len(a.Tracks()) != 0 {
		t.Fatalf("after reset: event=%d tracks=%d", a.Event, len(a.Tracks()))
	}
	reused := a.NewTrack(4)
	if reused != t0 {
		t.Error("expected the first track to be recycled")
	}
	if len(reused.States) != 0 || reused.SeedPlane != 4 {
		t.Errorf("recycled track not cleared: states=%d seed=%d", len(reused.States), reused.SeedPlane)
	}
}

func TestGeometryInconsistencyErrorMessage(t *testing.T) {
	var err error = NewArcLengthError(12, 3, -0.5)
	var gie *GeometryInconsistencyError
	if !errors.As(err, &gie) {
		t.Fatal("errors.As failed")
	}
	if gie.Event != 12 || gie.Plane != 3 {
		t.Errorf("event/plane = %d/%d", gie.Event, gie.Plane)
	}
	msg := err.Error()
	if !strings.Contains(msg, "event 12") || !strings.Contains(msg, "plane 3") {
		t.Errorf("message %q should name event and plane", msg)
	}
	if !strings.Contains(NewDimensionalityError(1, 2, 3).Error(), "dimensionality 3") {
		t.Error("dimensionality error should carry the offending value")
	}
}
