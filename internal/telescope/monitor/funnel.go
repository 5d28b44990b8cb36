package monitor

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/trackfinder/internal/telescope/pipeline"
)

// RenderFunnel writes an HTML page with the stage funnel of a run (seeds,
// built, filtered and final candidates) and the per-plane association
// outcomes.
func RenderFunnel(w io.Writer, stats pipeline.RunStats) error {
	funnel := charts.NewBar()
	funnel.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Track candidates", Width: "900px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Candidate funnel",
			Subtitle: fmt.Sprintf("events=%d processed=%d skipped=%d", stats.Events, stats.Processed, stats.SkippedMissingInput),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	funnel.SetXAxis([]string{"Seeds", "Built", "Hit-count cut", "De-duplicated"}).
		AddSeries("candidates", []opts.BarData{
			{Value: stats.Seeds},
			{Value: stats.RawCandidates},
			{Value: stats.FilteredCandidates},
			{Value: stats.FinalCandidates},
		}, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))

	p := stats.Propagation
	assoc := charts.NewBar()
	assoc.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "900px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Plane outcomes",
			Subtitle: fmt.Sprintf("steps=%d rejected=%d gain updates=%d", p.Steps, p.Rejected, p.GainUpdates),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	assoc.SetXAxis([]string{"Attached", "No hits", "Outside window", "No intersection"}).
		AddSeries("planes", []opts.BarData{
			{Value: p.Attached},
			{Value: p.NoHitsOnPlane},
			{Value: p.OutsideWindow},
			{Value: p.NoIntersection},
		}, charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))

	page := components.NewPage()
	page.AddCharts(funnel, assoc)
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render funnel: %w", err)
	}
	return nil
}
