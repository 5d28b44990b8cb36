package telescope

import "fmt"

// GeometryInconsistencyError is a fatal condition raised during propagation.
// It means the plane stack is degenerate or mis-ordered, not that the event
// data is bad, so the run must abort.
type GeometryInconsistencyError struct {
	Event     int64
	Plane     int
	ArcLength float64
	Reason    string
}

func (e *GeometryInconsistencyError) Error() string {
	return fmt.Sprintf("geometry inconsistency at event %d plane %d: %s", e.Event, e.Plane, e.Reason)
}

// NewArcLengthError reports a zero or negative path length between two
// consecutive intersections.
func NewArcLengthError(event int64, plane int, arc float64) *GeometryInconsistencyError {
	return &GeometryInconsistencyError{
		Event:     event,
		Plane:     plane,
		ArcLength: arc,
		Reason:    fmt.Sprintf("non-positive arc length %g mm", arc),
	}
}

// NewDimensionalityError reports a plane dimensionality outside {1, 2}.
func NewDimensionalityError(event int64, plane, dims int) *GeometryInconsistencyError {
	return &GeometryInconsistencyError{
		Event:  event,
		Plane:  plane,
		Reason: fmt.Sprintf("plane dimensionality %d not in {1, 2}", dims),
	}
}
