package l5tracks

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/trackfinder/internal/telescope"
)

// straightJacobian is d(state at z+dz)/d(state at z) for a straight line.
func straightJacobian(dz float64) *mat.Dense {
	j := identity()
	j.Set(telescope.ParamX, telescope.ParamTx, dz)
	j.Set(telescope.ParamY, telescope.ParamTy, dz)
	return j
}

func identity() *mat.Dense {
	j := mat.NewDense(telescope.NumParams, telescope.NumParams, nil)
	for i := 0; i < telescope.NumParams; i++ {
		j.Set(i, i, 1)
	}
	return j
}

// similarity returns J·C·Jᵗ, symmetrised against round-off.
func similarity(j mat.Matrix, c mat.Symmetric) *mat.SymDense {
	var jc, jcj mat.Dense
	jc.Mul(j, c)
	jcj.Mul(&jc, j.T())
	return symmetrize(&jcj)
}

func symmetrize(m mat.Matrix) *mat.SymDense {
	n, _ := m.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for k := i; k < n; k++ {
			s.SetSym(i, k, 0.5*(m.At(i, k)+m.At(k, i)))
		}
	}
	return s
}

// straight advances y by dz along a straight line.
func straight(y []float64, dz float64) []float64 {
	out := append([]float64(nil), y...)
	out[telescope.ParamX] += y[telescope.ParamTx] * dz
	out[telescope.ParamY] += y[telescope.ParamTy] * dz
	return out
}

// withPath appends a zero path length to a state vector for the
// path-length system.
func withPath(y []float64) []float64 {
	out := make([]float64, telescope.NumParams+1)
	copy(out, y[:telescope.NumParams])
	return out
}

// integrate advances y by dz through the field with caller-side step
// control: a step whose error ratio exceeds 1 is retried at half the size,
// and the step doubles again once the ratio falls below 0.1. It returns the
// transported state, the path length travelled and the accepted step sizes
// so the same discretisation can be replayed.
func (p *Propagator) integrate(y []float64, dz float64, stats *Stats) ([]float64, float64, []float64) {
	var steps []float64
	cur := withPath(y)
	h := math.Min(p.opts.MaxStep, dz)
	remaining := dz
	for remaining > 0 {
		if h > remaining {
			h = remaining
		}
		_ = p.integ.SetInitialValue(cur)
		next, errEst := p.integ.Step(h)
		ratio := p.integ.ErrorRatio(next, errEst)
		if ratio > 1 && h > minStep {
			h = math.Max(h/2, minStep)
			stats.Rejected++
			continue
		}
		cur = next
		remaining -= h
		steps = append(steps, h)
		stats.Steps++
		if ratio < 0.1 {
			h = math.Min(2*h, p.opts.MaxStep)
		}
	}
	return cur[:telescope.NumParams], cur[telescope.NumParams], steps
}

// replay integrates y over a fixed step sequence.
func (p *Propagator) replay(y []float64, steps []float64) []float64 {
	cur := withPath(y)
	for _, h := range steps {
		_ = p.integ.SetInitialValue(cur)
		cur, _ = p.integ.Step(h)
	}
	return cur[:telescope.NumParams]
}

// fieldJacobian differentiates the discretised transport map by central
// differences, replaying the nominal step sequence for every perturbation.
func (p *Propagator) fieldJacobian(y []float64, steps []float64) *mat.Dense {
	j := mat.NewDense(telescope.NumParams, telescope.NumParams, nil)
	plus := make([]float64, len(y))
	minus := make([]float64, len(y))
	for col := 0; col < telescope.NumParams; col++ {
		eps := 1e-6 * math.Max(1, math.Abs(y[col]))
		copy(plus, y)
		copy(minus, y)
		plus[col] += eps
		minus[col] -= eps
		fp := p.replay(plus, steps)
		fm := p.replay(minus, steps)
		for row := 0; row < telescope.NumParams; row++ {
			j.Set(row, col, (fp[row]-fm[row])/(2*eps))
		}
	}
	return j
}
