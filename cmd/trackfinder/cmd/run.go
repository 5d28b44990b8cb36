package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/banshee-data/trackfinder/internal/config"
	"github.com/banshee-data/trackfinder/internal/telescope"
	"github.com/banshee-data/trackfinder/internal/telescope/l1hits"
	"github.com/banshee-data/trackfinder/internal/telescope/l2geometry"
	"github.com/banshee-data/trackfinder/internal/telescope/monitor"
	"github.com/banshee-data/trackfinder/internal/telescope/pipeline"
	"github.com/banshee-data/trackfinder/internal/telescope/storage/sqlite"
)

// runOptions holds the inputs of one tracking run.
type runOptions struct {
	ConfigPath   string
	GeometryPath string
	EventsPath   string
	DBPath       string
	PlotDir      string
	OutputPath   string
}

func newRunCommand() *cobra.Command {
	var o runOptions
	c := &cobra.Command{
		Use:   "run",
		Short: "Form candidates for every event in a hit file.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTracking(o, cmd.OutOrStdout())
		},
	}
	c.Flags().StringVar(&o.ConfigPath, "config", "", "Tracking config (.json/.yaml); defaults apply when empty")
	c.Flags().StringVar(&o.GeometryPath, "geometry", "", "Geometry description (.json/.yaml)")
	c.Flags().StringVar(&o.EventsPath, "events", "", "Hit file, one JSON event per line")
	c.Flags().StringVar(&o.DBPath, "db", "", "SQLite database to record the run and its candidates")
	c.Flags().StringVar(&o.PlotDir, "plots", "", "Directory for residual histograms and the funnel report")
	c.Flags().StringVar(&o.OutputPath, "output", "", "Write final candidates as JSON lines to this file")
	_ = c.MarkFlagRequired("geometry")
	_ = c.MarkFlagRequired("events")
	return c
}

func loadConfig(path string) (*config.TrackingConfig, error) {
	if path == "" {
		return config.DefaultTrackingConfig(), nil
	}
	return config.LoadTrackingConfig(path)
}

func runTracking(o runOptions, out io.Writer) (err error) {
	cfg, err := loadConfig(o.ConfigPath)
	if err != nil {
		return err
	}
	geom, err := l2geometry.LoadPlanar(o.GeometryPath)
	if err != nil {
		return err
	}
	engine, err := pipeline.New(geom, cfg)
	if err != nil {
		return err
	}

	f, err := os.Open(filepath.Clean(o.EventsPath))
	if err != nil {
		return fmt.Errorf("failed to open events file: %w", err)
	}
	defer f.Close()

	recorder := monitor.NewResidualRecorder()
	sinks := pipeline.Sinks{recorder}

	if o.OutputPath != "" {
		w, err := os.Create(filepath.Clean(o.OutputPath))
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() {
			if cerr := w.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		sinks = append(sinks, candidateWriter(w))
	}

	var finish func(pipeline.RunStats, error) error
	if o.DBPath != "" {
		db, err := sqlite.Open(o.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()

		cfgJSON, err := json.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		runs := sqlite.NewRunStore(db)
		run := &sqlite.TrackingRun{
			ConfigJSON:   cfgJSON,
			GeometryPath: o.GeometryPath,
			EventsPath:   o.EventsPath,
		}
		if err := runs.InsertRun(run); err != nil {
			return err
		}
		telescope.Opsf("recording run %s in %s", run.RunID, o.DBPath)

		candidates := sqlite.NewCandidateStore(db)
		sinks = append(sinks, pipeline.SinkFunc(func(r pipeline.EventResult) error {
			if r.Status != pipeline.EventProcessed || len(r.Candidates) == 0 {
				return nil
			}
			_, err := candidates.InsertEventCandidates(run.RunID, r.Event, r.Candidates)
			return err
		}))
		finish = func(stats pipeline.RunStats, runErr error) error {
			return runs.CompleteRun(run.RunID, runCounts(stats), runErr)
		}
	}

	stats, runErr := engine.Run(l1hits.NewReader(f), sinks)
	if finish != nil {
		if err := finish(stats, runErr); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}
	if runErr != nil {
		return runErr
	}

	if o.PlotDir != "" {
		if err := writeReports(o.PlotDir, recorder, stats); err != nil {
			return err
		}
	}
	printSummary(out, stats, recorder.Summary())
	return nil
}

func runCounts(s pipeline.RunStats) sqlite.RunCounts {
	return sqlite.RunCounts{
		Events:             s.Events,
		Processed:          s.Processed,
		SkippedMissing:     s.SkippedMissingInput,
		Seeds:              s.Seeds,
		RawCandidates:      s.RawCandidates,
		FilteredCandidates: s.FilteredCandidates,
		FinalCandidates:    s.FinalCandidates,
	}
}

func writeReports(dir string, rec *monitor.ResidualRecorder, stats pipeline.RunStats) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create plot directory: %w", err)
	}
	if _, err := rec.SavePlots(dir); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, "funnel.html"))
	if err != nil {
		return fmt.Errorf("failed to create funnel report: %w", err)
	}
	if err := monitor.RenderFunnel(f, stats); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func printSummary(w io.Writer, s pipeline.RunStats, planes []monitor.PlaneSummary) {
	fmt.Fprintf(w, "events: %d (processed %d, skipped %d)\n", s.Events, s.Processed, s.SkippedMissingInput)
	fmt.Fprintf(w, "candidates: seeds %d, raw %d, filtered %d, final %d\n",
		s.Seeds, s.RawCandidates, s.FilteredCandidates, s.FinalCandidates)
	for _, p := range planes {
		fmt.Fprintf(w, "plane %d: %d residuals, u %.4f±%.4f mm, v %.4f±%.4f mm\n",
			p.Plane, p.N, p.MeanU, p.StdU, p.MeanV, p.StdV)
	}
}
