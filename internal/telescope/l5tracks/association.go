package l5tracks

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/trackfinder/internal/telescope"
)

// residual returns the local-frame distance between a hit and the state,
// using only the measured coordinates of the plane.
func residual(s *telescope.State, h *telescope.Hit, dims int) float64 {
	du := h.Local.X - s.PositionLocal.X
	if dims == 1 {
		return math.Abs(du)
	}
	dv := h.Local.Y - s.PositionLocal.Y
	return math.Hypot(du, dv)
}

// associate attaches the nearest hit if it lies inside the window. On a tie
// the earlier hit in input order wins.
func (p *Propagator) associate(s *telescope.State, hits []*telescope.Hit, dims int) (Association, float64) {
	if len(hits) == 0 {
		return NoHitsOnPlane, math.Inf(1)
	}
	var best *telescope.Hit
	bestDist := math.Inf(1)
	for _, h := range hits {
		if d := residual(s, h, dims); d < bestDist {
			best, bestDist = h, d
		}
	}
	if bestDist > p.opts.Window {
		return OutsideWindow, bestDist
	}
	s.AttachHit(best)
	return Attached, bestDist
}

// update applies the gain-matrix update for the hit attached to s:
//
//	S = H·C·Hᵗ + V,  K = C·Hᵗ·S⁻¹,  x' = x + K·r,  C' = (I − K·H)·C
//
// H maps the global x, y of the state onto the measured local axes. A
// singular S leaves the state untouched.
func (p *Propagator) update(event int64, s *telescope.State, dims int, stats *Stats) {
	if s.Cov == nil {
		return
	}
	h := p.measurementMatrix(s.Location, dims)

	hit := s.Hit
	r := mat.NewVecDense(dims, nil)
	v := mat.NewSymDense(dims, nil)
	r.SetVec(0, hit.Local.X-s.PositionLocal.X)
	v.SetSym(0, 0, hit.Cov[0])
	if dims == 2 {
		r.SetVec(1, hit.Local.Y-s.PositionLocal.Y)
		v.SetSym(0, 1, hit.Cov[1])
		v.SetSym(1, 1, hit.Cov[2])
	}

	var cht, innov mat.Dense
	cht.Mul(s.Cov, h.T())
	innov.Mul(h, &cht)
	innov.Add(&innov, v)

	var sInv mat.Dense
	if err := sInv.Inverse(&innov); err != nil {
		stats.SingularGains++
		telescope.Diagf("event %d plane %d: singular innovation covariance, update skipped: %v", event, s.Location, err)
		return
	}
	var gain mat.Dense
	gain.Mul(&cht, &sInv)

	var dx mat.VecDense
	dx.MulVec(&gain, r)
	x := s.Vector()
	for i := range x {
		x[i] += dx.AtVec(i)
	}
	s.SetVector(x)
	s.PositionLocal, _ = p.geom.GlobalToLocal(s.Location, s.PositionGlobal)

	var kh, ikh, c mat.Dense
	kh.Mul(&gain, h)
	ikh.Sub(identity(), &kh)
	c.Mul(&ikh, s.Cov)
	s.Cov = symmetrize(&c)
	stats.GainUpdates++
}

// measurementMatrix returns H (dims×5) for plane id.
func (p *Propagator) measurementMatrix(id, dims int) *mat.Dense {
	origin, _ := p.geom.LocalToGlobal(id, r3.Vec{})
	u, _ := p.geom.LocalToGlobal(id, r3.Vec{X: 1})
	v, _ := p.geom.LocalToGlobal(id, r3.Vec{Y: 1})
	axes := []r3.Vec{r3.Sub(u, origin), r3.Sub(v, origin)}

	h := mat.NewDense(dims, telescope.NumParams, nil)
	for row := 0; row < dims; row++ {
		h.Set(row, telescope.ParamX, axes[row].X)
		h.Set(row, telescope.ParamY, axes[row].Y)
	}
	return h
}
