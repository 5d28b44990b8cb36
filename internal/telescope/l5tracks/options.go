package l5tracks

import (
	"fmt"

	"github.com/banshee-data/trackfinder/internal/config"
	"github.com/banshee-data/trackfinder/internal/telescope/l3motion"
)

// Mode selects how attached hits act on the track state.
type Mode int

const (
	ModePropagate Mode = iota // hits are attached, kinematics untouched
	ModeKalman                // attached hits drive a gain-matrix update
)

func (m Mode) String() string {
	switch m {
	case ModePropagate:
		return config.ModePropagate
	case ModeKalman:
		return config.ModeKalman
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// minStep bounds step halving in the field integrator (mm).
const minStep = 1e-6

// Options holds the propagator parameters.
type Options struct {
	Mode       Mode
	Window     float64 // association window (mm, local frame)
	Tableau    l3motion.Tableau
	Tolerances l3motion.Tolerances
	MaxStep    float64 // mm
}

// DefaultOptions returns the options of a default TrackingConfig.
func DefaultOptions() Options {
	opts, _ := OptionsFromConfig(config.DefaultTrackingConfig())
	return opts
}

// OptionsFromConfig builds Options from a loaded TrackingConfig.
func OptionsFromConfig(cfg *config.TrackingConfig) (Options, error) {
	var mode Mode
	switch cfg.GetPropagationMode() {
	case config.ModePropagate:
		mode = ModePropagate
	case config.ModeKalman:
		mode = ModeKalman
	default:
		return Options{}, &config.ConfigurationError{Field: "propagation_mode", Reason: fmt.Sprintf("unknown mode %q", cfg.GetPropagationMode())}
	}
	tab, err := l3motion.TableauByName(cfg.GetTableau())
	if err != nil {
		return Options{}, &config.ConfigurationError{Field: "tableau", Reason: err.Error()}
	}
	return Options{
		Mode:    mode,
		Window:  cfg.GetWindowSize(),
		Tableau: tab,
		Tolerances: l3motion.Tolerances{
			Abs: cfg.GetAbsTolerance(),
			Rel: cfg.GetRelTolerance(),
		},
		MaxStep: cfg.GetMaxStep(),
	}, nil
}
