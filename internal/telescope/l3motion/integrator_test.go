package l3motion

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/trackfinder/internal/telescope"
)

// growth is dy/dz = y.
type growth struct{ n int }

func (g growth) Dimension() int { return g.n }
func (g growth) Derivatives(y, d []float64) {
	copy(d, y)
}

func TestTableauConsistency(t *testing.T) {
	for _, tab := range []Tableau{DormandPrince54, CashKarp45} {
		t.Run(tab.Name, func(t *testing.T) {
			require.NoError(t, tab.Validate())

			var sumB, sumErr float64
			for m := range tab.B {
				sumB += tab.B[m]
				sumErr += tab.BErr[m]
			}
			assert.InDelta(t, 1.0, sumB, 1e-14)
			assert.InDelta(t, 0.0, sumErr, 1e-14)

			for m, row := range tab.A {
				var s float64
				for _, a := range row {
					s += a
				}
				assert.InDelta(t, tab.C[m], s, 1e-14, "row %d", m)
			}
		})
	}
	assert.Equal(t, 7, DormandPrince54.Stages())
	assert.Equal(t, 6, CashKarp45.Stages())
}

func TestTableauByName(t *testing.T) {
	tab, err := TableauByName("cash-karp")
	require.NoError(t, err)
	assert.Equal(t, 6, tab.Stages())

	_, err = TableauByName("euler")
	assert.Error(t, err)
}

func TestTableauValidateRejectsBadShape(t *testing.T) {
	bad := Tableau{Name: "bad", C: []float64{0, 1}, A: [][]float64{{}, {1, 2}}, B: []float64{0.5, 0.5}, BErr: []float64{0, 0}}
	assert.Error(t, bad.Validate())
	assert.Error(t, Tableau{Name: "empty"}.Validate())
}

func TestNewIntegratorFailsFast(t *testing.T) {
	_, err := NewIntegrator(DormandPrince54, nil, Tolerances{})
	assert.True(t, errors.Is(err, ErrNoRightHandSide))

	_, err = NewIntegrator(DormandPrince54, growth{n: 0}, Tolerances{})
	assert.True(t, errors.Is(err, ErrNoEquations))

	_, err = NewIntegrator(Tableau{Name: "empty"}, growth{n: 1}, Tolerances{})
	assert.Error(t, err)
}

func TestSetInitialValueLength(t *testing.T) {
	in, err := NewIntegrator(DormandPrince54, growth{n: 2}, Tolerances{Abs: 1e-8})
	require.NoError(t, err)
	assert.Error(t, in.SetInitialValue([]float64{1}))
	assert.NoError(t, in.SetInitialValue([]float64{1, 2}))
}

func TestStepExponential(t *testing.T) {
	for _, tab := range []Tableau{DormandPrince54, CashKarp45} {
		t.Run(tab.Name, func(t *testing.T) {
			in, err := NewIntegrator(tab, growth{n: 1}, Tolerances{Abs: 1e-10, Rel: 1e-10})
			require.NoError(t, err)
			require.NoError(t, in.SetInitialValue([]float64{1}))

			y, e := in.Step(0.1)
			assert.InDelta(t, math.Exp(0.1), y[0], 1e-8)
			assert.Less(t, math.Abs(e[0]), 1e-6)
			again, _ := in.Step(0.1)
			assert.Equal(t, y, again, "Step must not move Y(0)")

			// A huge step blows the tolerance.
			y, e = in.Step(2)
			assert.Greater(t, in.ErrorRatio(y, e), 1.0)
		})
	}
}

func TestIntegrateHelixMatchesCircle(t *testing.T) {
	const p = 5.0 // GeV
	eom := &EquationsOfMotion{Field: r3.Vec{Y: 1}}
	in, err := NewIntegrator(DormandPrince54, eom, Tolerances{Abs: 1e-9, Rel: 1e-9})
	require.NoError(t, err)

	y := []float64{0, 0, 0, 0, -1 / p}
	const h, steps = 10.0, 100
	for i := 0; i < steps; i++ {
		require.NoError(t, in.SetInitialValue(y))
		var e []float64
		y, e = in.Step(h)
		require.LessOrEqual(t, in.ErrorRatio(y, e), 1.0, "step %d", i)
	}

	r := p / (eom.Field.Y * telescope.CurvatureConstant)
	z := h * steps
	wantX := r - math.Sqrt(r*r-z*z)
	wantTx := z / math.Sqrt(r*r-z*z)

	assert.InDelta(t, wantX, y[0], 1e-6)
	assert.InDelta(t, wantTx, y[2], 1e-9)
	assert.InDelta(t, 0, y[1], 1e-15)
	assert.Equal(t, -1/p, y[4], "q/p is constant")
}
