package l3motion

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/trackfinder/internal/telescope"
)

// System is a first-order ODE system dy/dz = f(y).
type System interface {
	Dimension() int
	// Derivatives writes f(y) into dydz. Both slices have length Dimension().
	Derivatives(y, dydz []float64)
}

// EquationsOfMotion is the trajectory of a charged particle in a uniform
// field with state y = [x, y, tx, ty, q/p].
type EquationsOfMotion struct {
	Field r3.Vec // T
}

// Dimension implements System.
func (e *EquationsOfMotion) Dimension() int { return 5 }

// IsFieldFree reports whether the motion is a straight line.
func (e *EquationsOfMotion) IsFieldFree() bool {
	return e.Field == (r3.Vec{})
}

// Derivatives implements System.
func (e *EquationsOfMotion) Derivatives(y, dydz []float64) {
	tx, ty, qp := y[2], y[3], y[4]
	ax, ay := e.Deflection(tx, ty)
	dydz[0] = tx
	dydz[1] = ty
	dydz[2] = qp * telescope.CurvatureConstant * ax
	dydz[3] = qp * telescope.CurvatureConstant * ay
	dydz[4] = 0
}

// Deflection returns the slope-dependent field terms Ax, Ay.
func (e *EquationsOfMotion) Deflection(tx, ty float64) (ax, ay float64) {
	b := e.Field
	s := math.Sqrt(1 + tx*tx + ty*ty)
	ax = s * (ty*(tx*b.X+b.Z) - (1+tx*tx)*b.Y)
	ay = s * (-tx*(ty*b.Y+b.Z) + (1+ty*ty)*b.X)
	return ax, ay
}

// PathLength extends the equations of motion with the travelled path
// length s as a sixth component, ds/dz = sqrt(1 + tx² + ty²).
type PathLength struct {
	*EquationsOfMotion
}

// Dimension implements System.
func (p PathLength) Dimension() int { return 6 }

// Derivatives implements System.
func (p PathLength) Derivatives(y, dydz []float64) {
	p.EquationsOfMotion.Derivatives(y[:5], dydz[:5])
	dydz[5] = math.Sqrt(1 + y[2]*y[2] + y[3]*y[3])
}
