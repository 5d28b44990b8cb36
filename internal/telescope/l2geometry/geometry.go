package l2geometry

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Intersection is the result of a next-plane query. Found=false is an
// ordinary outcome: the ray reaches no remaining plane inside its active
// area.
type Intersection struct {
	Plane    int
	Point    r3.Vec  // global intersection point (mm)
	Distance float64 // straight-line distance from the query point (mm)
	Found    bool
}

// Geometry is everything the track-candidate former needs to know about
// the plane stack.
type Geometry interface {
	// PlaneIDs returns every plane in z-order, excluded planes included.
	PlaneIDs() []int
	// PlaneOrder returns the non-excluded planes in z-order.
	PlaneOrder() []int
	// PlaneDimensionality returns 1 for strip planes, 2 for pixel planes,
	// and 0 for unknown ids.
	PlaneDimensionality(id int) int
	// PlaneZ returns the global z of the plane centre.
	PlaneZ(id int) float64
	LocalToGlobal(id int, local r3.Vec) (r3.Vec, bool)
	GlobalToLocal(id int, global r3.Vec) (r3.Vec, bool)
	// FindNextPlaneIntersection follows a straight ray from point along dir
	// and returns the first non-excluded plane downstream of from that the
	// ray crosses inside its active area.
	FindNextPlaneIntersection(point, dir r3.Vec, from int) Intersection
	// MomentumAfterArcLength transports a momentum vector (GeV) along an arc
	// of the given length (mm) through the field.
	MomentumAfterArcLength(p0, pos r3.Vec, charge, arcLength float64) r3.Vec
	// InitialDisplacementToFirstPlane is the distance (mm) upstream of the
	// first plane at which the beam momentum is nominal.
	InitialDisplacementToFirstPlane() float64
	// Field returns the uniform magnetic field (T).
	Field() r3.Vec
}
