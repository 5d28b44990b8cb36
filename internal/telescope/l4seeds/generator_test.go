package l4seeds

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/trackfinder/internal/config"
	"github.com/banshee-data/trackfinder/internal/telescope"
	"github.com/banshee-data/trackfinder/internal/telescope/l1hits"
	"github.com/banshee-data/trackfinder/internal/telescope/l2geometry"
)

func telescopeGeometry(t *testing.T, field [3]float64) *l2geometry.Planar {
	t.Helper()
	desc := l2geometry.Description{Field: field, InitialDisplacement: 100}
	for i := 0; i < 6; i++ {
		desc.Planes = append(desc.Planes, l2geometry.PlaneSpec{
			ID:             i,
			Origin:         [3]float64{0, 0, float64(i) * 150},
			Dimensionality: 2,
		})
	}
	g, err := l2geometry.NewPlanar(desc)
	require.NoError(t, err)
	return g
}

func hitsOn(plane int, n int, firstID int64) []telescope.Hit {
	hits := make([]telescope.Hit, n)
	for i := range hits {
		hits[i] = telescope.Hit{
			ID:    firstID + int64(i),
			Plane: plane,
			Local: r3.Vec{X: float64(i) - 1, Y: 0.5 * float64(i)},
			Cov:   [3]float64{0.01, 0, 0.04},
		}
	}
	return hits
}

func TestGenerateOneSeedPerHit(t *testing.T) {
	g, err := NewGenerator(telescopeGeometry(t, [3]float64{}), config.DefaultTrackingConfig())
	require.NoError(t, err)

	hits := append(hitsOn(0, 3, 10), hitsOn(1, 2, 20)...)
	seeds := g.Generate(l1hits.NewCollection(hits))

	require.Equal(t, 3, seeds.Len())
	ids := map[int64]bool{}
	for _, s := range seeds.Seeds(0) {
		require.True(t, s.HasHit())
		assert.Equal(t, 0, s.Location)
		assert.Equal(t, s.Hit.Local, s.PositionLocal, "zero residual at creation")
		ids[s.Hit.ID] = true
	}
	assert.Len(t, ids, 3)
}

func TestGenerateEmptyPlane(t *testing.T) {
	g, err := NewGenerator(telescopeGeometry(t, [3]float64{}), config.DefaultTrackingConfig())
	require.NoError(t, err)

	seeds := g.Generate(l1hits.NewCollection(hitsOn(2, 4, 1)))
	assert.Equal(t, 0, seeds.Len())
	assert.Equal(t, []int{0}, seeds.Planes())
}

func TestNewGeneratorConfigurationErrors(t *testing.T) {
	geom := telescopeGeometry(t, [3]float64{})
	tests := []struct {
		name  string
		seeds []int
	}{
		{"no seed planes", nil},
		{"as many seeds as planes", []int{0, 1, 2, 3, 4, 5}},
		{"unknown seed plane", []int{9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultTrackingConfig()
			cfg.SeedPlaneIDs = tt.seeds
			_, err := NewGenerator(geom, cfg)
			var ce *config.ConfigurationError
			require.True(t, errors.As(err, &ce), "got %v", err)
			assert.Equal(t, "seed_plane_ids", ce.Field)
		})
	}
}

func TestSeedStraightLine(t *testing.T) {
	g, err := NewGenerator(telescopeGeometry(t, [3]float64{}), config.DefaultTrackingConfig())
	require.NoError(t, err)

	s := g.Generate(l1hits.NewCollection(hitsOn(0, 1, 1))).Seeds(0)[0]
	assert.Zero(t, s.Tx)
	assert.Zero(t, s.Ty)
	assert.Zero(t, s.QOverP, "q/p is not tracked without a field")
	assert.InDelta(t, 100, s.ArcLength, 1e-12)

	assert.InDelta(t, 0.01, s.Cov.At(telescope.ParamX, telescope.ParamX), 1e-15)
	assert.InDelta(t, 0.04, s.Cov.At(telescope.ParamY, telescope.ParamY), 1e-15)
	assert.InDelta(t, 1e-8, s.Cov.At(telescope.ParamTx, telescope.ParamTx), 1e-20)
	assert.Zero(t, s.Cov.At(telescope.ParamQOverP, telescope.ParamQOverP))
}

func TestSeedSlopeFollowsChargeSign(t *testing.T) {
	geom := telescopeGeometry(t, [3]float64{0, 1, 0})

	slope := func(charge float64) telescope.State {
		cfg := config.DefaultTrackingConfig()
		cfg.BeamCharge = &charge
		g, err := NewGenerator(geom, cfg)
		require.NoError(t, err)
		return g.Generate(l1hits.NewCollection(hitsOn(0, 1, 1))).Seeds(0)[0]
	}

	neg, pos := slope(-1), slope(+1)
	assert.Greater(t, neg.Tx, 0.0, "electrons bend towards +x in +By")
	assert.InDelta(t, -neg.Tx, pos.Tx, 1e-15)
	assert.InDelta(t, 0, neg.Ty, 1e-15)
	assert.InDelta(t, -1/5.0, neg.QOverP, 1e-12)

	// (|q|·σ/E)² with σ = 0.1 and E = 5 GeV.
	assert.InDelta(t, 4e-4, neg.Cov.At(telescope.ParamQOverP, telescope.ParamQOverP), 1e-15)
}

func TestSeedCovarianceFollowsPlaneRotation(t *testing.T) {
	desc := l2geometry.Description{Planes: []l2geometry.PlaneSpec{
		{ID: 0, Rotation: [3]float64{0, 0, 1.5707963267948966}, Dimensionality: 2},
		{ID: 1, Origin: [3]float64{0, 0, 150}, Dimensionality: 2},
	}}
	geom, err := l2geometry.NewPlanar(desc)
	require.NoError(t, err)
	g, err := NewGenerator(geom, config.DefaultTrackingConfig())
	require.NoError(t, err)

	s := g.Generate(l1hits.NewCollection(hitsOn(0, 1, 1))).Seeds(0)[0]
	// A plane rotated by 90° about z swaps the u and v variances.
	assert.InDelta(t, 0.04, s.Cov.At(telescope.ParamX, telescope.ParamX), 1e-12)
	assert.InDelta(t, 0.01, s.Cov.At(telescope.ParamY, telescope.ParamY), 1e-12)
}
