package l4seeds

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/trackfinder/internal/config"
	"github.com/banshee-data/trackfinder/internal/telescope"
	"github.com/banshee-data/trackfinder/internal/telescope/l1hits"
	"github.com/banshee-data/trackfinder/internal/telescope/l2geometry"
)

// Beam holds the nominal beam parameters used to initialise seeds.
type Beam struct {
	Energy         float64 // GeV
	Charge         float64
	RelUncertainty float64    // σ(E)/E
	AngularSpread  [2]float64 // rad
}

// BeamFromConfig extracts the beam parameters from cfg.
func BeamFromConfig(cfg *config.TrackingConfig) Beam {
	return Beam{
		Energy:         cfg.GetBeamEnergy(),
		Charge:         cfg.GetBeamCharge(),
		RelUncertainty: cfg.GetBeamEnergyUncertainty(),
		AngularSpread:  cfg.GetBeamAngularSpread(),
	}
}

// Generator builds seed states for one event at a time.
type Generator struct {
	geom   l2geometry.Geometry
	planes []int
	beam   Beam
	startZ float64
	curved bool
}

// NewGenerator checks the seed-plane configuration against geom.
func NewGenerator(geom l2geometry.Geometry, cfg *config.TrackingConfig) (*Generator, error) {
	all := geom.PlaneIDs()
	if len(cfg.SeedPlaneIDs) == 0 {
		return nil, &config.ConfigurationError{Field: "seed_plane_ids", Reason: "at least one seed plane is required"}
	}
	if len(cfg.SeedPlaneIDs) >= len(all) {
		return nil, &config.ConfigurationError{
			Field:  "seed_plane_ids",
			Reason: "seed-plane count must be below the plane count",
		}
	}
	for _, id := range cfg.SeedPlaneIDs {
		if geom.PlaneDimensionality(id) == 0 {
			return nil, &config.ConfigurationError{Field: "seed_plane_ids", Reason: "unknown seed plane"}
		}
	}

	beam := BeamFromConfig(cfg)
	g := &Generator{
		geom:   geom,
		planes: append([]int(nil), cfg.SeedPlaneIDs...),
		beam:   beam,
		startZ: geom.PlaneZ(all[0]) - geom.InitialDisplacementToFirstPlane(),
		curved: geom.Field() != (r3.Vec{}) && beam.Charge != 0,
	}
	return g, nil
}

// Planes returns the seed planes in configured order.
func (g *Generator) Planes() []int { return g.planes }

// Generate creates one seed per hit on each seed plane. The seed position
// is the hit position, so its residual is zero at creation.
func (g *Generator) Generate(hits *l1hits.Collection) *telescope.SeedMap {
	seeds := telescope.NewSeedMap(g.planes)
	for _, plane := range g.planes {
		onPlane := hits.OnPlane(plane)
		for _, h := range onPlane {
			seeds.Add(plane, g.seed(plane, h))
		}
		telescope.Tracef("seed plane %d: %d seeds", plane, len(onPlane))
	}
	return seeds
}

func (g *Generator) seed(plane int, h *telescope.Hit) telescope.State {
	global, _ := g.geom.LocalToGlobal(plane, h.Local)
	arc := global.Z - g.startZ

	s := telescope.State{
		Location:       plane,
		PositionLocal:  h.Local,
		PositionGlobal: global,
		ArcLength:      arc,
		Hit:            h,
	}

	p := r3.Vec{Z: g.beam.Energy}
	if g.curved {
		p = g.geom.MomentumAfterArcLength(p, global, g.beam.Charge, arc)
		s.QOverP = g.beam.Charge / r3.Norm(p)
	}
	s.Tx = p.X / p.Z
	s.Ty = p.Y / p.Z
	s.Cov = g.covariance(plane, h)
	return s
}

// covariance is diagonal in the slopes and q/p. The position block is the
// hit covariance rotated into global x, y.
func (g *Generator) covariance(plane int, h *telescope.Hit) *mat.SymDense {
	origin, _ := g.geom.LocalToGlobal(plane, r3.Vec{})
	u, _ := g.geom.LocalToGlobal(plane, r3.Vec{X: 1})
	v, _ := g.geom.LocalToGlobal(plane, r3.Vec{Y: 1})
	u, v = r3.Sub(u, origin), r3.Sub(v, origin)

	a := mat.NewDense(2, 2, []float64{u.X, v.X, u.Y, v.Y})
	local := mat.NewSymDense(2, []float64{h.Cov[0], h.Cov[1], h.Cov[1], h.Cov[2]})
	var pos mat.Dense
	pos.Product(a, local, a.T())

	c := mat.NewSymDense(telescope.NumParams, nil)
	c.SetSym(telescope.ParamX, telescope.ParamX, pos.At(0, 0))
	c.SetSym(telescope.ParamX, telescope.ParamY, pos.At(0, 1))
	c.SetSym(telescope.ParamY, telescope.ParamY, pos.At(1, 1))
	c.SetSym(telescope.ParamTx, telescope.ParamTx, g.beam.AngularSpread[0]*g.beam.AngularSpread[0])
	c.SetSym(telescope.ParamTy, telescope.ParamTy, g.beam.AngularSpread[1]*g.beam.AngularSpread[1])
	if g.curved {
		sigma := math.Abs(g.beam.Charge) * g.beam.RelUncertainty / g.beam.Energy
		c.SetSym(telescope.ParamQOverP, telescope.ParamQOverP, sigma*sigma)
	}
	return c
}
