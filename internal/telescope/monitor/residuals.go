package monitor

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/trackfinder/internal/telescope"
	"github.com/banshee-data/trackfinder/internal/telescope/pipeline"
)

// histogramBins is the bin count of the residual histograms.
const histogramBins = 40

// PlaneSummary holds residual statistics of one plane in the local frame.
type PlaneSummary struct {
	Plane int
	N     int
	MeanU float64
	StdU  float64
	MeanV float64
	StdV  float64
}

type planeResiduals struct {
	u, v []float64
}

// ResidualRecorder collects hit-minus-state residuals of the final
// candidates, plane by plane. It implements pipeline.Sink.
type ResidualRecorder struct {
	mu      sync.Mutex
	byPlane map[int]*planeResiduals
}

// NewResidualRecorder creates an empty recorder.
func NewResidualRecorder() *ResidualRecorder {
	return &ResidualRecorder{byPlane: make(map[int]*planeResiduals)}
}

// Consume implements pipeline.Sink.
func (r *ResidualRecorder) Consume(res pipeline.EventResult) error {
	for _, t := range res.Candidates {
		r.Record(t)
	}
	return nil
}

// Record adds the residuals of every attached hit of t. The seed state
// carries zero residual and is skipped.
func (r *ResidualRecorder) Record(t *telescope.Track) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range t.States {
		s := &t.States[i]
		if i == 0 || s.Hit == nil {
			continue
		}
		pr := r.byPlane[s.Location]
		if pr == nil {
			pr = &planeResiduals{}
			r.byPlane[s.Location] = pr
		}
		pr.u = append(pr.u, s.Hit.Local.X-s.PositionLocal.X)
		pr.v = append(pr.v, s.Hit.Local.Y-s.PositionLocal.Y)
	}
}

// Summary returns per-plane statistics ordered by plane id.
func (r *ResidualRecorder) Summary() []PlaneSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]PlaneSummary, 0, len(r.byPlane))
	for _, plane := range r.planes() {
		pr := r.byPlane[plane]
		s := PlaneSummary{Plane: plane, N: len(pr.u)}
		s.MeanU, s.StdU = stat.MeanStdDev(pr.u, nil)
		s.MeanV, s.StdV = stat.MeanStdDev(pr.v, nil)
		out = append(out, s)
	}
	return out
}

func (r *ResidualRecorder) planes() []int {
	planes := make([]int, 0, len(r.byPlane))
	for p := range r.byPlane {
		planes = append(planes, p)
	}
	sort.Ints(planes)
	return planes
}

// SavePlots writes one u and one v residual histogram per plane into dir
// and returns the written paths. Planes whose residuals have no spread are
// skipped.
func (r *ResidualRecorder) SavePlots(dir string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	var written []string
	for _, plane := range r.planes() {
		pr := r.byPlane[plane]
		for _, axis := range []struct {
			name   string
			values []float64
		}{{"u", pr.u}, {"v", pr.v}} {
			if len(axis.values) < 2 || floats.Min(axis.values) == floats.Max(axis.values) {
				telescope.Diagf("plane %d: no %s residual spread, histogram skipped", plane, axis.name)
				continue
			}
			path := filepath.Join(dir, fmt.Sprintf("plane_%02d_residual_%s.png", plane, axis.name))
			if err := saveHistogram(path, plane, axis.name, axis.values); err != nil {
				return written, err
			}
			written = append(written, path)
		}
	}
	return written, nil
}

func saveHistogram(path string, plane int, axis string, values []float64) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Plane %d - %s residual", plane, axis)
	p.X.Label.Text = fmt.Sprintf("hit - state, %s (mm)", axis)
	p.Y.Label.Text = "Hits"

	h, err := plotter.NewHist(plotter.Values(values), histogramBins)
	if err != nil {
		return fmt.Errorf("plane %d %s histogram: %w", plane, axis, err)
	}
	p.Add(h)

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save %s: %w", path, err)
	}
	return nil
}
