package l2geometry

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/trackfinder/internal/telescope"
)

// parallelEpsilon is the smallest |n·d| treated as a crossing.
const parallelEpsilon = 1e-12

// PlaneSpec describes one sensor plane.
type PlaneSpec struct {
	ID             int        `json:"id" yaml:"id"`
	Origin         [3]float64 `json:"origin" yaml:"origin"`                 // global centre (mm)
	Rotation       [3]float64 `json:"rotation" yaml:"rotation"`             // rad about x, y, z; applied x first
	HalfSize       [2]float64 `json:"half_size" yaml:"half_size"`           // active half-widths in u, v (mm); 0 = unbounded
	Dimensionality int        `json:"dimensionality" yaml:"dimensionality"` // 1 strip, 2 pixel
}

// Description is the serialisable form of a Planar geometry.
type Description struct {
	Planes              []PlaneSpec `json:"planes" yaml:"planes"`
	Field               [3]float64  `json:"field" yaml:"field"`                               // T
	InitialDisplacement float64     `json:"initial_displacement" yaml:"initial_displacement"` // mm
}

type plane struct {
	spec   PlaneSpec
	origin r3.Vec
	rot    *mat.Dense // local -> global
	normal r3.Vec
}

// Planar is a stack of rigid planes in a uniform field.
type Planar struct {
	planes       []*plane // z-order
	byID         map[int]*plane
	pos          map[int]int // id -> index in planes
	excluded     map[int]bool
	order        []int
	field        r3.Vec
	displacement float64
}

// NewPlanar builds a geometry from its description. Planes are ordered by
// the z of their origin; equal z keeps description order.
func NewPlanar(desc Description) (*Planar, error) {
	if len(desc.Planes) == 0 {
		return nil, fmt.Errorf("geometry has no planes")
	}
	g := &Planar{
		byID:         make(map[int]*plane, len(desc.Planes)),
		pos:          make(map[int]int, len(desc.Planes)),
		excluded:     make(map[int]bool),
		field:        r3.Vec{X: desc.Field[0], Y: desc.Field[1], Z: desc.Field[2]},
		displacement: desc.InitialDisplacement,
	}
	for _, spec := range desc.Planes {
		if _, dup := g.byID[spec.ID]; dup {
			return nil, fmt.Errorf("duplicate plane id %d", spec.ID)
		}
		if spec.HalfSize[0] < 0 || spec.HalfSize[1] < 0 {
			return nil, fmt.Errorf("plane %d: negative half size", spec.ID)
		}
		p := &plane{
			spec:   spec,
			origin: r3.Vec{X: spec.Origin[0], Y: spec.Origin[1], Z: spec.Origin[2]},
			rot:    rotationMatrix(spec.Rotation),
		}
		p.normal = r3.Unit(mulVec(p.rot, r3.Vec{Z: 1}))
		g.byID[spec.ID] = p
		g.planes = append(g.planes, p)
	}
	sort.SliceStable(g.planes, func(i, j int) bool {
		return g.planes[i].origin.Z < g.planes[j].origin.Z
	})
	for i, p := range g.planes {
		g.pos[p.spec.ID] = i
	}
	g.rebuildOrder()
	return g, nil
}

// SetExclusions replaces the set of excluded planes. Excluded planes leave
// PlaneOrder and intersection searches. An unknown id leaves the current
// selection untouched.
func (g *Planar) SetExclusions(ids ...int) error {
	for _, id := range ids {
		if _, ok := g.byID[id]; !ok {
			return fmt.Errorf("cannot exclude unknown plane %d", id)
		}
	}
	g.excluded = make(map[int]bool, len(ids))
	for _, id := range ids {
		g.excluded[id] = true
	}
	g.rebuildOrder()
	return nil
}

// OverrideDimensionality replaces the per-plane dimensionality, one entry
// per plane in z-order.
func (g *Planar) OverrideDimensionality(dims []int) error {
	if len(dims) != len(g.planes) {
		return fmt.Errorf("dimensionality override has %d entries for %d planes", len(dims), len(g.planes))
	}
	for i, p := range g.planes {
		p.spec.Dimensionality = dims[i]
	}
	return nil
}

// Select returns a copy of g with exactly the planes in excluded removed
// and, when dims is non-nil, the dimensionality replaced. g itself is not
// modified.
func (g *Planar) Select(excluded []int, dims []int) (Geometry, error) {
	c := g.clone()
	if err := c.SetExclusions(excluded...); err != nil {
		return nil, err
	}
	if dims != nil {
		if err := c.OverrideDimensionality(dims); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (g *Planar) clone() *Planar {
	c := &Planar{
		planes:       make([]*plane, len(g.planes)),
		byID:         make(map[int]*plane, len(g.planes)),
		pos:          make(map[int]int, len(g.pos)),
		excluded:     make(map[int]bool, len(g.excluded)),
		field:        g.field,
		displacement: g.displacement,
	}
	for i, p := range g.planes {
		cp := *p
		c.planes[i] = &cp
		c.byID[cp.spec.ID] = &cp
	}
	for id, i := range g.pos {
		c.pos[id] = i
	}
	for id, ex := range g.excluded {
		c.excluded[id] = ex
	}
	c.rebuildOrder()
	return c
}

func (g *Planar) rebuildOrder() {
	g.order = g.order[:0]
	for _, p := range g.planes {
		if !g.excluded[p.spec.ID] {
			g.order = append(g.order, p.spec.ID)
		}
	}
}

// PlaneIDs implements Geometry.
func (g *Planar) PlaneIDs() []int {
	ids := make([]int, len(g.planes))
	for i, p := range g.planes {
		ids[i] = p.spec.ID
	}
	return ids
}

// PlaneOrder implements Geometry.
func (g *Planar) PlaneOrder() []int {
	return append([]int(nil), g.order...)
}

// PlaneDimensionality implements Geometry.
func (g *Planar) PlaneDimensionality(id int) int {
	p, ok := g.byID[id]
	if !ok {
		return 0
	}
	return p.spec.Dimensionality
}

// PlaneZ implements Geometry.
func (g *Planar) PlaneZ(id int) float64 {
	p, ok := g.byID[id]
	if !ok {
		return math.NaN()
	}
	return p.origin.Z
}

// LocalToGlobal implements Geometry.
func (g *Planar) LocalToGlobal(id int, local r3.Vec) (r3.Vec, bool) {
	p, ok := g.byID[id]
	if !ok {
		return r3.Vec{}, false
	}
	return r3.Add(p.origin, mulVec(p.rot, local)), true
}

// GlobalToLocal implements Geometry.
func (g *Planar) GlobalToLocal(id int, global r3.Vec) (r3.Vec, bool) {
	p, ok := g.byID[id]
	if !ok {
		return r3.Vec{}, false
	}
	return mulVecT(p.rot, r3.Sub(global, p.origin)), true
}

// FindNextPlaneIntersection implements Geometry.
func (g *Planar) FindNextPlaneIntersection(point, dir r3.Vec, from int) Intersection {
	start, ok := g.pos[from]
	if !ok {
		return Intersection{}
	}
	for _, p := range g.planes[start+1:] {
		if g.excluded[p.spec.ID] {
			continue
		}
		denom := r3.Dot(p.normal, dir)
		if math.Abs(denom) < parallelEpsilon {
			continue
		}
		t := r3.Dot(p.normal, r3.Sub(p.origin, point)) / denom
		if t <= 0 {
			// Plane at or behind the current point (e.g. two planes at one z).
			continue
		}
		hit := r3.Add(point, r3.Scale(t, dir))
		if !p.inside(mulVecT(p.rot, r3.Sub(hit, p.origin))) {
			continue
		}
		return Intersection{
			Plane:    p.spec.ID,
			Point:    hit,
			Distance: t * r3.Norm(dir),
			Found:    true,
		}
	}
	return Intersection{}
}

func (p *plane) inside(local r3.Vec) bool {
	if p.spec.HalfSize[0] > 0 && math.Abs(local.X) > p.spec.HalfSize[0] {
		return false
	}
	if p.spec.HalfSize[1] > 0 && math.Abs(local.Y) > p.spec.HalfSize[1] {
		return false
	}
	return true
}

// MomentumAfterArcLength implements Geometry. In a uniform field the
// momentum precesses about B at a rate of -q·k·|B|/|p| radians per mm;
// |p| is conserved.
func (g *Planar) MomentumAfterArcLength(p0, _ r3.Vec, charge, arcLength float64) r3.Vec {
	b := r3.Norm(g.field)
	mag := r3.Norm(p0)
	if b == 0 || charge == 0 || mag == 0 || arcLength == 0 {
		return p0
	}
	angle := -charge * telescope.CurvatureConstant * b * arcLength / mag
	return r3.NewRotation(angle, r3.Unit(g.field)).Rotate(p0)
}

// InitialDisplacementToFirstPlane implements Geometry.
func (g *Planar) InitialDisplacementToFirstPlane() float64 { return g.displacement }

// Field implements Geometry.
func (g *Planar) Field() r3.Vec { return g.field }

// rotationMatrix returns Rz(γ)·Ry(β)·Rx(α).
func rotationMatrix(angles [3]float64) *mat.Dense {
	sa, ca := math.Sincos(angles[0])
	sb, cb := math.Sincos(angles[1])
	sg, cg := math.Sincos(angles[2])
	rx := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, ca, -sa,
		0, sa, ca,
	})
	ry := mat.NewDense(3, 3, []float64{
		cb, 0, sb,
		0, 1, 0,
		-sb, 0, cb,
	})
	rz := mat.NewDense(3, 3, []float64{
		cg, -sg, 0,
		sg, cg, 0,
		0, 0, 1,
	})
	var zy, r mat.Dense
	zy.Mul(rz, ry)
	r.Mul(&zy, rx)
	return &r
}

func mulVec(m *mat.Dense, v r3.Vec) r3.Vec {
	return r3.Vec{
		X: m.At(0, 0)*v.X + m.At(0, 1)*v.Y + m.At(0, 2)*v.Z,
		Y: m.At(1, 0)*v.X + m.At(1, 1)*v.Y + m.At(1, 2)*v.Z,
		Z: m.At(2, 0)*v.X + m.At(2, 1)*v.Y + m.At(2, 2)*v.Z,
	}
}

// mulVecT multiplies by the transpose, which is the inverse for a rotation.
func mulVecT(m *mat.Dense, v r3.Vec) r3.Vec {
	return r3.Vec{
		X: m.At(0, 0)*v.X + m.At(1, 0)*v.Y + m.At(2, 0)*v.Z,
		Y: m.At(0, 1)*v.X + m.At(1, 1)*v.Y + m.At(2, 1)*v.Z,
		Z: m.At(0, 2)*v.X + m.At(1, 2)*v.Y + m.At(2, 2)*v.Z,
	}
}
