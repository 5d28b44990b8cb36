package l3motion

import "fmt"

// Tableau is the coefficient table of an explicit embedded Runge-Kutta pair.
// A is strictly lower triangular and stored row by row: A[m] has m entries.
// B gives the propagated (higher-order) solution, BErr the difference
// between the two embedded solutions.
type Tableau struct {
	Name string
	C    []float64
	A    [][]float64
	B    []float64
	BErr []float64
}

// Stages returns the number of stages.
func (t Tableau) Stages() int { return len(t.B) }

// Validate checks the shape of the table.
func (t Tableau) Validate() error {
	s := len(t.B)
	if s == 0 {
		return fmt.Errorf("tableau %q has no stages", t.Name)
	}
	if len(t.C) != s || len(t.A) != s || len(t.BErr) != s {
		return fmt.Errorf("tableau %q: inconsistent stage count", t.Name)
	}
	for m, row := range t.A {
		if len(row) != m {
			return fmt.Errorf("tableau %q: row %d has %d entries, want %d", t.Name, m, len(row), m)
		}
	}
	return nil
}

func diff(a, b []float64) []float64 {
	d := make([]float64, len(a))
	for i := range a {
		d[i] = a[i] - b[i]
	}
	return d
}

var dormandPrince5 = []float64{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84, 0}
var dormandPrince4 = []float64{5179.0 / 57600, 0, 7571.0 / 16695, 393.0 / 640, -92097.0 / 339200, 187.0 / 2100, 1.0 / 40}

// DormandPrince54 is the 7-stage 5(4) pair with the FSAL property.
var DormandPrince54 = Tableau{
	Name: "dormand-prince",
	C:    []float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1},
	A: [][]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	},
	B:    dormandPrince5,
	BErr: diff(dormandPrince5, dormandPrince4),
}

var cashKarp5 = []float64{37.0 / 378, 0, 250.0 / 621, 125.0 / 594, 0, 512.0 / 1771}
var cashKarp4 = []float64{2825.0 / 27648, 0, 18575.0 / 48384, 13525.0 / 55296, 277.0 / 14336, 1.0 / 4}

// CashKarp45 is the 6-stage 5(4) pair of Cash and Karp.
var CashKarp45 = Tableau{
	Name: "cash-karp",
	C:    []float64{0, 1.0 / 5, 3.0 / 10, 3.0 / 5, 1, 7.0 / 8},
	A: [][]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{3.0 / 10, -9.0 / 10, 6.0 / 5},
		{-11.0 / 54, 5.0 / 2, -70.0 / 27, 35.0 / 27},
		{1631.0 / 55296, 175.0 / 512, 575.0 / 13824, 44275.0 / 110592, 253.0 / 4096},
	},
	B:    cashKarp5,
	BErr: diff(cashKarp5, cashKarp4),
}

// TableauByName looks up a built-in tableau.
func TableauByName(name string) (Tableau, error) {
	switch name {
	case DormandPrince54.Name:
		return DormandPrince54, nil
	case CashKarp45.Name:
		return CashKarp45, nil
	}
	return Tableau{}, fmt.Errorf("unknown tableau %q", name)
}
