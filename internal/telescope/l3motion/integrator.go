package l3motion

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoRightHandSide is returned when the integrator has no System.
	ErrNoRightHandSide = errors.New("integrator: right-hand side not set")
	// ErrNoEquations is returned for a System of dimension zero.
	ErrNoEquations = errors.New("integrator: system has no equations")
)

// Tolerances scale the local error estimate. They are advisory: the
// integrator reports ErrorRatio but never rejects a step itself.
type Tolerances struct {
	Abs float64
	Rel float64
}

// Integrator is a single-step explicit embedded Runge-Kutta solver.
// It is not safe for concurrent use.
type Integrator struct {
	tab Tableau
	sys System
	tol Tolerances
	n   int

	y0  []float64
	k   [][]float64
	tmp []float64
	der []float64
}

// NewIntegrator prepares an integrator for sys using tab.
func NewIntegrator(tab Tableau, sys System, tol Tolerances) (*Integrator, error) {
	if sys == nil {
		return nil, ErrNoRightHandSide
	}
	n := sys.Dimension()
	if n <= 0 {
		return nil, ErrNoEquations
	}
	if err := tab.Validate(); err != nil {
		return nil, err
	}
	in := &Integrator{
		tab: tab,
		sys: sys,
		tol: tol,
		n:   n,
		y0:  make([]float64, n),
		k:   make([][]float64, tab.Stages()),
		tmp: make([]float64, n),
		der: make([]float64, n),
	}
	for i := range in.k {
		in.k[i] = make([]float64, n)
	}
	return in, nil
}

// SetInitialValue sets Y(0) for the next Step.
func (in *Integrator) SetInitialValue(y0 []float64) error {
	if len(y0) != in.n {
		return fmt.Errorf("integrator: initial value has %d components, want %d", len(y0), in.n)
	}
	copy(in.y0, y0)
	return nil
}

// Step advances Y(0) by h and returns Y(h) together with the local error
// estimate. Y(0) itself is left unchanged.
func (in *Integrator) Step(h float64) (y, errEst []float64) {
	for m := range in.k {
		copy(in.tmp, in.y0)
		for j, a := range in.tab.A[m] {
			if a == 0 {
				continue
			}
			for i := range in.tmp {
				in.tmp[i] += a * in.k[j][i]
			}
		}
		in.sys.Derivatives(in.tmp, in.der)
		for i := range in.der {
			in.k[m][i] = h * in.der[i]
		}
	}

	y = append([]float64(nil), in.y0...)
	errEst = make([]float64, in.n)
	for m := range in.k {
		b, e := in.tab.B[m], in.tab.BErr[m]
		for i := range y {
			y[i] += b * in.k[m][i]
			errEst[i] += e * in.k[m][i]
		}
	}
	return y, errEst
}

// ErrorRatio returns the RMS of the error estimate scaled by
// Abs + Rel·max(|y0|, |y|). A value above 1 means the step missed the
// tolerances.
func (in *Integrator) ErrorRatio(y, errEst []float64) float64 {
	var sum float64
	for i := range errEst {
		scale := in.tol.Abs + in.tol.Rel*math.Max(math.Abs(in.y0[i]), math.Abs(y[i]))
		if scale <= 0 {
			scale = math.SmallestNonzeroFloat64
		}
		r := errEst[i] / scale
		sum += r * r
	}
	return math.Sqrt(sum / float64(len(errEst)))
}
