package pipeline

import (
	"errors"
	"fmt"
	"io"

	"github.com/banshee-data/trackfinder/internal/config"
	"github.com/banshee-data/trackfinder/internal/telescope"
	"github.com/banshee-data/trackfinder/internal/telescope/l1hits"
	"github.com/banshee-data/trackfinder/internal/telescope/l2geometry"
	"github.com/banshee-data/trackfinder/internal/telescope/l4seeds"
	"github.com/banshee-data/trackfinder/internal/telescope/l5tracks"
	"github.com/banshee-data/trackfinder/internal/telescope/l6candidates"
)

// SelectableGeometry is a Geometry that can derive a view with a run's
// plane exclusions and dimensionality override applied.
type SelectableGeometry interface {
	l2geometry.Geometry
	Select(excluded []int, dims []int) (l2geometry.Geometry, error)
}

// EventStatus reports how an event was handled.
type EventStatus int

const (
	EventProcessed EventStatus = iota
	EventSkippedMissingInput
)

func (s EventStatus) String() string {
	switch s {
	case EventProcessed:
		return "processed"
	case EventSkippedMissingInput:
		return "skipped-missing-input"
	}
	return fmt.Sprintf("EventStatus(%d)", int(s))
}

// EventResult is the output of one event. Candidates point into the
// engine's arena and stay valid until the next ProcessEvent call; clone
// them to keep them longer.
type EventResult struct {
	Event      int64
	Status     EventStatus
	Seeds      int
	Raw        int // candidates built
	Filtered   int // candidates passing the hit-count cut
	Candidates []*telescope.Track
}

// RunStats accumulates counters across the events of a run. The caller
// owns it; the engine keeps no counters between calls.
type RunStats struct {
	Events              int
	Processed           int
	SkippedMissingInput int
	Seeds               int
	RawCandidates       int
	FilteredCandidates  int
	FinalCandidates     int
	Propagation         l5tracks.Stats
}

// Engine forms track candidates event by event. It is not safe for
// concurrent use.
type Engine struct {
	geom   l2geometry.Geometry
	seeds  *l4seeds.Generator
	prop   *l5tracks.Propagator
	arena  *telescope.EventArena
	planes int

	allowedMissing int
	allowedShared  int
}

// New validates cfg against geom, derives a geometry view with the
// configured plane exclusions and dimensionality override, and builds the
// stages. geom itself is never modified. Every validation
// failure is a *config.ConfigurationError.
func New(geom l2geometry.Geometry, cfg *config.TrackingConfig) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.ValidateAgainstGeometry(geom.PlaneIDs()); err != nil {
		return nil, err
	}

	if len(cfg.ExcludedPlaneIDs) > 0 || cfg.PlaneDimensionality != nil {
		sg, ok := geom.(SelectableGeometry)
		if !ok {
			return nil, &config.ConfigurationError{Field: "excluded_plane_ids", Reason: "geometry does not support plane selection"}
		}
		selected, err := sg.Select(cfg.ExcludedPlaneIDs, cfg.PlaneDimensionality)
		if err != nil {
			return nil, &config.ConfigurationError{Field: "excluded_plane_ids", Reason: err.Error()}
		}
		geom = selected
	}

	seeds, err := l4seeds.NewGenerator(geom, cfg)
	if err != nil {
		return nil, err
	}
	opts, err := l5tracks.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	prop, err := l5tracks.NewPropagator(geom, opts)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		geom:           geom,
		seeds:          seeds,
		prop:           prop,
		arena:          telescope.NewEventArena(),
		planes:         len(geom.PlaneOrder()),
		allowedMissing: cfg.GetAllowedMissingHits(),
		allowedShared:  cfg.GetAllowedSharedHits(),
	}
	telescope.Opsf("engine ready: %d active planes, seeds on %v, mode %s", e.planes, seeds.Planes(), opts.Mode)
	return e, nil
}

// ActivePlanes returns the number of non-excluded planes.
func (e *Engine) ActivePlanes() int { return e.planes }

// ProcessEvent runs seeding, propagation, the hit-count cut and
// de-duplication for one event. An event without a hit collection is
// skipped, not failed. A returned error is fatal for the run.
func (e *Engine) ProcessEvent(ev l1hits.Event, stats *RunStats) (EventResult, error) {
	stats.Events++
	res := EventResult{Event: ev.Number}
	if !ev.HasHits() {
		stats.SkippedMissingInput++
		res.Status = EventSkippedMissingInput
		telescope.Diagf("event %d: no hit collection, skipping", ev.Number)
		return res, nil
	}

	e.arena.Reset(ev.Number)
	seeds := e.seeds.Generate(ev.Hits)
	for _, plane := range seeds.Planes() {
		for _, seed := range seeds.Seeds(plane) {
			track := e.arena.NewTrack(plane)
			if err := e.prop.Propagate(ev.Number, seed, ev.Hits, track, &stats.Propagation); err != nil {
				return res, err
			}
			if err := track.CheckNoDuplicateHits(); err != nil {
				return res, fmt.Errorf("event %d: %w", ev.Number, err)
			}
		}
	}

	raw := e.arena.Tracks()
	filtered := l6candidates.Filter(raw, e.planes, e.allowedMissing)
	final := l6candidates.Deduplicate(filtered, e.allowedShared)

	res.Status = EventProcessed
	res.Seeds = seeds.Len()
	res.Raw = len(raw)
	res.Filtered = len(filtered)
	res.Candidates = final

	stats.Processed++
	stats.Seeds += res.Seeds
	stats.RawCandidates += res.Raw
	stats.FilteredCandidates += res.Filtered
	stats.FinalCandidates += len(final)
	telescope.Tracef("event %d: seeds=%d raw=%d filtered=%d final=%d", ev.Number, res.Seeds, res.Raw, res.Filtered, len(final))
	return res, nil
}

// EventSource yields events until io.EOF. *l1hits.Reader is an EventSource.
type EventSource interface {
	Next() (l1hits.Event, error)
}

// Sink consumes event results in event order.
type Sink interface {
	Consume(EventResult) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(EventResult) error

// Consume implements Sink.
func (f SinkFunc) Consume(r EventResult) error { return f(r) }

// Sinks fans a result out to several sinks in order.
type Sinks []Sink

// Consume implements Sink.
func (s Sinks) Consume(r EventResult) error {
	for _, sink := range s {
		if err := sink.Consume(r); err != nil {
			return err
		}
	}
	return nil
}

// Run processes every event from src and hands each result to sink. The
// first fatal error aborts the run; the stats gathered so far are returned
// with it.
func (e *Engine) Run(src EventSource, sink Sink) (RunStats, error) {
	var stats RunStats
	for {
		ev, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			telescope.Opsf("run aborted after %d events: %v", stats.Events, err)
			return stats, fmt.Errorf("read event: %w", err)
		}

		res, err := e.ProcessEvent(ev, &stats)
		if err != nil {
			telescope.Opsf("run aborted at event %d: %v", ev.Number, err)
			return stats, fmt.Errorf("process event %d: %w", ev.Number, err)
		}
		if sink != nil {
			if err := sink.Consume(res); err != nil {
				telescope.Opsf("run aborted at event %d: sink: %v", ev.Number, err)
				return stats, fmt.Errorf("sink event %d: %w", ev.Number, err)
			}
		}
	}
	telescope.Opsf("run complete: events=%d processed=%d skipped=%d candidates=%d",
		stats.Events, stats.Processed, stats.SkippedMissingInput, stats.FinalCandidates)
	return stats, nil
}

// SliceSource replays a fixed list of events.
type SliceSource struct {
	events []l1hits.Event
	next   int
}

// NewSliceSource returns a source over events.
func NewSliceSource(events []l1hits.Event) *SliceSource {
	return &SliceSource{events: events}
}

// Next implements EventSource.
func (s *SliceSource) Next() (l1hits.Event, error) {
	if s.next >= len(s.events) {
		return l1hits.Event{}, io.EOF
	}
	ev := s.events[s.next]
	s.next++
	return ev, nil
}
