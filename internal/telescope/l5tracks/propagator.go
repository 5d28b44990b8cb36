package l5tracks

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/trackfinder/internal/telescope"
	"github.com/banshee-data/trackfinder/internal/telescope/l2geometry"
	"github.com/banshee-data/trackfinder/internal/telescope/l3motion"
)

// HitSource supplies the hits of the current event by plane.
type HitSource interface {
	OnPlane(id int) []*telescope.Hit
}

// Propagator builds one track candidate per seed. The geometry must not
// change between NewPropagator and the last Propagate call. A Propagator
// is not safe for concurrent use.
type Propagator struct {
	geom  l2geometry.Geometry
	opts  Options
	eom   *l3motion.EquationsOfMotion
	integ *l3motion.Integrator // nil in a field-free geometry

	order    []int
	orderPos map[int]int
}

// NewPropagator validates opts and prepares the field integrator.
func NewPropagator(geom l2geometry.Geometry, opts Options) (*Propagator, error) {
	if opts.Window <= 0 {
		return nil, fmt.Errorf("propagator: window must be positive, got %g", opts.Window)
	}
	if opts.MaxStep <= 0 {
		return nil, fmt.Errorf("propagator: max step must be positive, got %g", opts.MaxStep)
	}
	p := &Propagator{
		geom:     geom,
		opts:     opts,
		eom:      &l3motion.EquationsOfMotion{Field: geom.Field()},
		order:    geom.PlaneOrder(),
		orderPos: make(map[int]int),
	}
	for i, id := range p.order {
		p.orderPos[id] = i
	}
	if !p.eom.IsFieldFree() {
		integ, err := l3motion.NewIntegrator(opts.Tableau, l3motion.PathLength{EquationsOfMotion: p.eom}, opts.Tolerances)
		if err != nil {
			return nil, fmt.Errorf("propagator: %w", err)
		}
		p.integ = integ
	}
	return p, nil
}

// Options returns the propagator options.
func (p *Propagator) Options() Options { return p.opts }

// Propagate appends the seed and one state per downstream plane reached to
// track. A plane the straight ray misses is skipped; the candidate stops
// when no further plane can be reached. The only errors are
// *telescope.GeometryInconsistencyError values, which are fatal.
func (p *Propagator) Propagate(event int64, seed telescope.State, hits HitSource, track *telescope.Track, stats *Stats) error {
	stats.Seeds++
	track.States = append(track.States, seed.Clone())

	from := seed.Location
	for guard := 0; guard <= len(p.order); guard++ {
		last := track.Last()
		ix := p.geom.FindNextPlaneIntersection(last.PositionGlobal, last.Direction(), from)
		p.countMisses(event, from, ix, stats)
		if !ix.Found {
			return nil
		}
		stats.PlanesVisited++

		next, err := p.transport(event, last, ix, stats)
		if err != nil {
			return err
		}

		dims := p.geom.PlaneDimensionality(ix.Plane)
		if dims != 1 && dims != 2 {
			return telescope.NewDimensionalityError(event, ix.Plane, dims)
		}
		assoc, residual := p.associate(&next, hits.OnPlane(ix.Plane), dims)
		stats.count(assoc)
		telescope.Tracef("event %d plane %d: %s residual=%.4g", event, ix.Plane, assoc, residual)
		if assoc == Attached && p.opts.Mode == ModeKalman {
			p.update(event, &next, dims, stats)
		}

		track.States = append(track.States, next)
		from = ix.Plane
	}
	return fmt.Errorf("event %d: propagation from plane %d did not terminate", event, seed.Location)
}

// countMisses records the non-excluded planes between from and the plane
// reached (or the end of the stack) that the ray did not cross.
func (p *Propagator) countMisses(event int64, from int, ix l2geometry.Intersection, stats *Stats) {
	start, ok := p.orderPos[from]
	if !ok {
		return
	}
	end := len(p.order)
	if ix.Found {
		if pos, ok := p.orderPos[ix.Plane]; ok {
			end = pos
		}
	}
	for _, id := range p.order[start+1 : max(end, start+1)] {
		stats.NoIntersection++
		telescope.Diagf("event %d: no intersection with plane %d, skipping", event, id)
	}
}

// transport carries last to the intersection ix.
func (p *Propagator) transport(event int64, last *telescope.State, ix l2geometry.Intersection, stats *Stats) (telescope.State, error) {
	next := telescope.State{Location: ix.Plane}
	y := last.Vector()
	dz := ix.Point.Z - last.PositionGlobal.Z

	var jac *mat.Dense
	var arc float64
	if p.integ == nil || last.QOverP == 0 {
		next.SetVector(straight(y, dz))
		next.PositionGlobal = ix.Point
		jac = straightJacobian(dz)
		delta := r3.Sub(next.PositionGlobal, last.PositionGlobal)
		arc = math.Copysign(r3.Norm(delta), r3.Dot(delta, last.Direction()))
	} else {
		out, path, steps := p.integrate(y, dz, stats)
		next.SetVector(out)
		next.PositionGlobal.Z = ix.Point.Z
		jac = p.fieldJacobian(y, steps)
		arc = path
	}

	if !(arc > 0) {
		return next, telescope.NewArcLengthError(event, ix.Plane, arc)
	}
	next.ArcLength = arc
	next.PositionLocal, _ = p.geom.GlobalToLocal(ix.Plane, next.PositionGlobal)
	if last.Cov != nil {
		next.Cov = similarity(jac, last.Cov)
	}
	return next, nil
}
