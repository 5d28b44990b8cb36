package l5tracks

// Association is the outcome of matching one propagated state to the hits
// of its plane. Every outcome other than Attached is recoverable.
type Association int

const (
	Attached      Association = iota
	NoHitsOnPlane             // the plane recorded nothing this event
	OutsideWindow             // nearest hit is farther than the window
)

func (a Association) String() string {
	switch a {
	case Attached:
		return "attached"
	case NoHitsOnPlane:
		return "no-hits"
	case OutsideWindow:
		return "outside-window"
	}
	return "unknown"
}

// Stats counts propagation outcomes. It is owned by the caller and passed
// to every Propagate call; the propagator keeps no counters of its own.
type Stats struct {
	Seeds          int // candidates propagated
	PlanesVisited  int // intersections found
	NoIntersection int // downstream planes the ray missed
	Attached       int
	NoHitsOnPlane  int
	OutsideWindow  int
	GainUpdates    int
	SingularGains  int // Kalman updates skipped on a singular innovation
	Steps          int // accepted integrator steps
	Rejected       int // rejected integrator steps
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.Seeds += o.Seeds
	s.PlanesVisited += o.PlanesVisited
	s.NoIntersection += o.NoIntersection
	s.Attached += o.Attached
	s.NoHitsOnPlane += o.NoHitsOnPlane
	s.OutsideWindow += o.OutsideWindow
	s.GainUpdates += o.GainUpdates
	s.SingularGains += o.SingularGains
	s.Steps += o.Steps
	s.Rejected += o.Rejected
}

func (s *Stats) count(a Association) {
	switch a {
	case Attached:
		s.Attached++
	case NoHitsOnPlane:
		s.NoHitsOnPlane++
	case OutsideWindow:
		s.OutsideWindow++
	}
}
