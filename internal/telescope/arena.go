package telescope

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

//
// 0) Hits
//

// Hit is a reconstructed position measurement on one plane, supplied by the
// upstream clustering stage. States reference hits; tracking code never
// copies or mutates them.
type Hit struct {
	ID    int64
	Plane int
	Local r3.Vec     // plane-local position (mm)
	Cov   [3]float64 // local covariance: uu, uv, vv (mm²)
}

//
// 1) States
//

// Indices into a state parameter vector and its covariance.
const (
	ParamX = iota
	ParamY
	ParamTx
	ParamTy
	ParamQOverP
	NumParams
)

// State is the estimated particle kinematics at one sensor plane.
// Position and slopes are expressed in the global frame with z as the
// propagation axis.
type State struct {
	Location       int
	PositionLocal  r3.Vec
	PositionGlobal r3.Vec
	Tx             float64 // dx/dz
	Ty             float64 // dy/dz
	QOverP         float64 // signed charge/momentum (1/GeV); zero in straight-line mode
	Cov            *mat.SymDense
	ArcLength      float64 // path length from the previous state (mm); for a seed, the beam-axis distance from the beam start

	Hit *Hit
}

// Vector returns the parameter vector [x, y, tx, ty, q/p].
func (s *State) Vector() []float64 {
	return []float64{s.PositionGlobal.X, s.PositionGlobal.Y, s.Tx, s.Ty, s.QOverP}
}

// SetVector writes a parameter vector back into the state, keeping the
// global z position.
func (s *State) SetVector(v []float64) {
	s.PositionGlobal.X = v[ParamX]
	s.PositionGlobal.Y = v[ParamY]
	s.Tx = v[ParamTx]
	s.Ty = v[ParamTy]
	s.QOverP = v[ParamQOverP]
}

// Direction returns the unit direction of travel.
func (s *State) Direction() r3.Vec {
	return r3.Unit(r3.Vec{X: s.Tx, Y: s.Ty, Z: 1})
}

// HasHit reports whether a hit is attached.
func (s *State) HasHit() bool { return s.Hit != nil }

// AttachHit attaches h, replacing any previous reference.
func (s *State) AttachHit(h *Hit) { s.Hit = h }

// DetachHit drops the hit reference.
func (s *State) DetachHit() { s.Hit = nil }

// Clone returns a copy with its own covariance. The hit reference is shared.
func (s State) Clone() State {
	if s.Cov != nil {
		c := mat.NewSymDense(NumParams, nil)
		c.CopySym(s.Cov)
		s.Cov = c
	}
	return s
}

//
// 2) Track candidates
//

// Track is an ordered sequence of states, ordered by increasing propagation
// distance from the seed. A track owns its states.
type Track struct {
	Ordinal   int // construction order within the event
	SeedPlane int
	States    []State
}

// Hits returns the attached hits in state order.
func (t *Track) Hits() []*Hit {
	hits := make([]*Hit, 0, len(t.States))
	for i := range t.States {
		if t.States[i].Hit != nil {
			hits = append(hits, t.States[i].Hit)
		}
	}
	return hits
}

// HitCount returns the number of states with an attached hit.
func (t *Track) HitCount() int {
	n := 0
	for i := range t.States {
		if t.States[i].Hit != nil {
			n++
		}
	}
	return n
}

// Last returns the most downstream state, or nil for an empty track.
func (t *Track) Last() *State {
	if len(t.States) == 0 {
		return nil
	}
	return &t.States[len(t.States)-1]
}

// CheckNoDuplicateHits returns an error if the same hit identity is attached
// to more than one state.
func (t *Track) CheckNoDuplicateHits() error {
	seen := make(map[int64]int, len(t.States))
	for i := range t.States {
		h := t.States[i].Hit
		if h == nil {
			continue
		}
		if prev, ok := seen[h.ID]; ok {
			return fmt.Errorf("track %d: hit %d attached at states %d and %d", t.Ordinal, h.ID, prev, i)
		}
		seen[h.ID] = i
	}
	return nil
}

// Clone returns a deep copy of the track. Hit references stay shared.
func (t *Track) Clone() *Track {
	c := &Track{Ordinal: t.Ordinal, SeedPlane: t.SeedPlane, States: make([]State, len(t.States))}
	for i := range t.States {
		c.States[i] = t.States[i].Clone()
	}
	return c
}

//
// 3) Per-event containers
//

// SeedMap maps seed-plane id to the states created from that plane's hits.
// Plane iteration follows the configured seed-plane order.
type SeedMap struct {
	planes []int
	seeds  map[int][]State
}

// NewSeedMap creates an empty map for the given seed planes.
func NewSeedMap(planes []int) *SeedMap {
	m := &SeedMap{planes: append([]int(nil), planes...), seeds: make(map[int][]State, len(planes))}
	return m
}

// Add appends a seed for plane.
func (m *SeedMap) Add(plane int, s State) {
	m.seeds[plane] = append(m.seeds[plane], s)
}

// Planes returns the seed planes in configured order.
func (m *SeedMap) Planes() []int { return m.planes }

// Seeds returns the seeds created on plane.
func (m *SeedMap) Seeds(plane int) []State { return m.seeds[plane] }

// Len returns the total number of seeds.
func (m *SeedMap) Len() int {
	n := 0
	for _, s := range m.seeds {
		n += len(s)
	}
	return n
}

// EventArena owns the track candidates built for one event. Tracks handed
// out by NewTrack stay valid until Reset, which releases all of them at once
// and keeps their state storage for the next event.
type EventArena struct {
	Event  int64
	tracks []*Track
	used   int
}

// NewEventArena returns an empty arena.
func NewEventArena() *EventArena {
	return &EventArena{}
}

// Reset releases every track and rebinds the arena to event.
func (a *EventArena) Reset(event int64) {
	for i := 0; i < a.used; i++ {
		t := a.tracks[i]
		clear(t.States)
		t.States = t.States[:0]
	}
	a.used = 0
	a.Event = event
}

// NewTrack returns an empty track with the next construction ordinal.
func (a *EventArena) NewTrack(seedPlane int) *Track {
	if a.used == len(a.tracks) {
		a.tracks = append(a.tracks, &Track{})
	}
	t := a.tracks[a.used]
	t.Ordinal = a.used
	t.SeedPlane = seedPlane
	t.States = t.States[:0]
	a.used++
	return t
}

// Tracks returns the tracks built since the last Reset, in construction order.
func (a *EventArena) Tracks() []*Track {
	return a.tracks[:a.used]
}
