package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Propagation modes.
const (
	ModePropagate = "propagate" // kinematics follow the seed; hits are only attached
	ModeKalman    = "kalman"    // attached hits update the state through the gain matrix
)

// Integration tableaux understood by l3motion.TableauByName.
const (
	TableauDormandPrince = "dormand-prince"
	TableauCashKarp      = "cash-karp"
)

// TrackingConfig is the run-level configuration of the track-candidate
// former. Pointer fields distinguish "unset" from zero; the Get* accessors
// supply defaults for unset fields.
type TrackingConfig struct {
	// Plane selection
	SeedPlaneIDs     []int `json:"seed_plane_ids,omitempty" yaml:"seed_plane_ids,omitempty"`
	ExcludedPlaneIDs []int `json:"excluded_plane_ids,omitempty" yaml:"excluded_plane_ids,omitempty"`
	// PlaneDimensionality optionally overrides the geometry, one entry per
	// plane in z-order (excluded planes included).
	PlaneDimensionality []int `json:"plane_dimensionality,omitempty" yaml:"plane_dimensionality,omitempty"`

	// Candidate cuts
	AllowedMissingHits *int     `json:"allowed_missing_hits,omitempty" yaml:"allowed_missing_hits,omitempty"`
	AllowedSharedHits  *int     `json:"allowed_shared_hits,omitempty" yaml:"allowed_shared_hits,omitempty"`
	WindowSize         *float64 `json:"window_size,omitempty" yaml:"window_size,omitempty"` // mm

	// Beam
	BeamEnergy            *float64  `json:"beam_energy,omitempty" yaml:"beam_energy,omitempty"` // GeV
	BeamCharge            *float64  `json:"beam_charge,omitempty" yaml:"beam_charge,omitempty"`
	BeamEnergyUncertainty *float64  `json:"beam_energy_uncertainty,omitempty" yaml:"beam_energy_uncertainty,omitempty"` // relative
	BeamAngularSpread     []float64 `json:"beam_angular_spread,omitempty" yaml:"beam_angular_spread,omitempty"`         // rad, [x, y]

	// Propagation
	PropagationMode *string  `json:"propagation_mode,omitempty" yaml:"propagation_mode,omitempty"`
	Tableau         *string  `json:"tableau,omitempty" yaml:"tableau,omitempty"`
	AbsTolerance    *float64 `json:"abs_tolerance,omitempty" yaml:"abs_tolerance,omitempty"`
	RelTolerance    *float64 `json:"rel_tolerance,omitempty" yaml:"rel_tolerance,omitempty"`
	MaxStep         *float64 `json:"max_step,omitempty" yaml:"max_step,omitempty"` // mm
}

// ConfigurationError is a fatal configuration problem detected at
// initialisation.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

func configErrorf(field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTrackingConfig returns a TrackingConfig with every field unset.
func EmptyTrackingConfig() *TrackingConfig {
	return &TrackingConfig{}
}

// DefaultTrackingConfig returns a configuration with every optional field
// populated with its default. Seed planes default to the first plane.
func DefaultTrackingConfig() *TrackingConfig {
	return &TrackingConfig{
		SeedPlaneIDs:          []int{0},
		AllowedMissingHits:    ptrInt(0),
		AllowedSharedHits:     ptrInt(0),
		WindowSize:            ptrFloat64(1.0),
		BeamEnergy:            ptrFloat64(5.0),
		BeamCharge:            ptrFloat64(-1),
		BeamEnergyUncertainty: ptrFloat64(0.1),
		BeamAngularSpread:     []float64{0.0001, 0.0001},
		PropagationMode:       ptrString(ModePropagate),
		Tableau:               ptrString(TableauDormandPrince),
		AbsTolerance:          ptrFloat64(1e-6),
		RelTolerance:          ptrFloat64(1e-6),
		MaxStep:               ptrFloat64(50),
	}
}

// LoadTrackingConfig loads a TrackingConfig from a .json, .yaml or .yml file.
// Fields omitted from the file are left unset and fall back to defaults
// through the Get* accessors.
func LoadTrackingConfig(path string) (*TrackingConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTrackingConfig()
	if ext == ".json" {
		err = json.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", strings.TrimPrefix(ext, "."), err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the values that can be judged without the geometry.
// Every failure is a *ConfigurationError.
func (c *TrackingConfig) Validate() error {
	if len(c.SeedPlaneIDs) == 0 {
		return configErrorf("seed_plane_ids", "at least one seed plane is required")
	}
	seen := make(map[int]bool, len(c.SeedPlaneIDs))
	for _, id := range c.SeedPlaneIDs {
		if seen[id] {
			return configErrorf("seed_plane_ids", "plane %d listed twice", id)
		}
		seen[id] = true
	}
	for _, id := range c.SeedPlaneIDs {
		if c.IsExcluded(id) {
			return configErrorf("excluded_plane_ids", "seed plane %d cannot be excluded", id)
		}
	}

	if c.AllowedMissingHits != nil && *c.AllowedMissingHits < 0 {
		return configErrorf("allowed_missing_hits", "must be non-negative, got %d", *c.AllowedMissingHits)
	}
	if c.AllowedSharedHits != nil && *c.AllowedSharedHits < 0 {
		return configErrorf("allowed_shared_hits", "must be non-negative, got %d", *c.AllowedSharedHits)
	}
	if c.WindowSize != nil && *c.WindowSize <= 0 {
		return configErrorf("window_size", "must be positive, got %g", *c.WindowSize)
	}

	if c.BeamEnergy != nil && *c.BeamEnergy <= 0 {
		return configErrorf("beam_energy", "must be positive, got %g", *c.BeamEnergy)
	}
	if c.BeamEnergyUncertainty != nil && *c.BeamEnergyUncertainty < 0 {
		return configErrorf("beam_energy_uncertainty", "must be non-negative, got %g", *c.BeamEnergyUncertainty)
	}
	if c.BeamAngularSpread != nil {
		if len(c.BeamAngularSpread) != 2 {
			return configErrorf("beam_angular_spread", "need 2 components, got %d", len(c.BeamAngularSpread))
		}
		for i, v := range c.BeamAngularSpread {
			if v <= 0 {
				return configErrorf("beam_angular_spread", "component %d must be positive, got %g", i, v)
			}
		}
	}

	for i, d := range c.PlaneDimensionality {
		if d != 1 && d != 2 {
			return configErrorf("plane_dimensionality", "entry %d is %d, want 1 or 2", i, d)
		}
	}

	if c.PropagationMode != nil {
		switch *c.PropagationMode {
		case ModePropagate, ModeKalman:
		default:
			return configErrorf("propagation_mode", "unknown mode %q", *c.PropagationMode)
		}
	}
	if c.Tableau != nil {
		switch *c.Tableau {
		case TableauDormandPrince, TableauCashKarp:
		default:
			return configErrorf("tableau", "unknown tableau %q", *c.Tableau)
		}
	}
	if c.AbsTolerance != nil && *c.AbsTolerance <= 0 {
		return configErrorf("abs_tolerance", "must be positive, got %g", *c.AbsTolerance)
	}
	if c.RelTolerance != nil && *c.RelTolerance < 0 {
		return configErrorf("rel_tolerance", "must be non-negative, got %g", *c.RelTolerance)
	}
	if c.MaxStep != nil && *c.MaxStep <= 0 {
		return configErrorf("max_step", "must be positive, got %g", *c.MaxStep)
	}

	return nil
}

// ValidateAgainstGeometry checks the options that depend on the plane stack:
// the total plane count (excluded planes included) and the set of known
// plane ids.
func (c *TrackingConfig) ValidateAgainstGeometry(planeIDs []int) error {
	planeCount := len(planeIDs)
	if len(c.SeedPlaneIDs) >= planeCount {
		return configErrorf("seed_plane_ids", "%d seed planes for %d planes leaves nothing to propagate to", len(c.SeedPlaneIDs), planeCount)
	}
	if c.PlaneDimensionality != nil && len(c.PlaneDimensionality) != planeCount {
		return configErrorf("plane_dimensionality", "got %d entries for %d planes", len(c.PlaneDimensionality), planeCount)
	}
	known := make(map[int]bool, planeCount)
	for _, id := range planeIDs {
		known[id] = true
	}
	for _, id := range c.SeedPlaneIDs {
		if !known[id] {
			return configErrorf("seed_plane_ids", "unknown plane %d", id)
		}
	}
	for _, id := range c.ExcludedPlaneIDs {
		if !known[id] {
			return configErrorf("excluded_plane_ids", "unknown plane %d", id)
		}
	}
	return nil
}

// GetAllowedMissingHits returns the allowed_missing_hits value or the default.
func (c *TrackingConfig) GetAllowedMissingHits() int {
	if c.AllowedMissingHits == nil {
		return 0
	}
	return *c.AllowedMissingHits
}

// GetAllowedSharedHits returns the allowed_shared_hits value or the default.
func (c *TrackingConfig) GetAllowedSharedHits() int {
	if c.AllowedSharedHits == nil {
		return 0
	}
	return *c.AllowedSharedHits
}

// GetWindowSize returns the window_size value or the default.
func (c *TrackingConfig) GetWindowSize() float64 {
	if c.WindowSize == nil {
		return 1.0
	}
	return *c.WindowSize
}

// GetBeamEnergy returns the beam_energy value or the default.
func (c *TrackingConfig) GetBeamEnergy() float64 {
	if c.BeamEnergy == nil {
		return 5.0
	}
	return *c.BeamEnergy
}

// GetBeamCharge returns the beam_charge value or the default (electrons).
func (c *TrackingConfig) GetBeamCharge() float64 {
	if c.BeamCharge == nil {
		return -1
	}
	return *c.BeamCharge
}

// GetBeamEnergyUncertainty returns the relative beam energy spread or the default.
func (c *TrackingConfig) GetBeamEnergyUncertainty() float64 {
	if c.BeamEnergyUncertainty == nil {
		return 0.1
	}
	return *c.BeamEnergyUncertainty
}

// GetBeamAngularSpread returns the beam divergence in x and y.
func (c *TrackingConfig) GetBeamAngularSpread() [2]float64 {
	if len(c.BeamAngularSpread) != 2 {
		return [2]float64{0.0001, 0.0001}
	}
	return [2]float64{c.BeamAngularSpread[0], c.BeamAngularSpread[1]}
}

// GetPropagationMode returns the propagation_mode value or the default.
func (c *TrackingConfig) GetPropagationMode() string {
	if c.PropagationMode == nil || *c.PropagationMode == "" {
		return ModePropagate
	}
	return *c.PropagationMode
}

// GetTableau returns the tableau value or the default.
func (c *TrackingConfig) GetTableau() string {
	if c.Tableau == nil || *c.Tableau == "" {
		return TableauDormandPrince
	}
	return *c.Tableau
}

// GetAbsTolerance returns the abs_tolerance value or the default.
func (c *TrackingConfig) GetAbsTolerance() float64 {
	if c.AbsTolerance == nil {
		return 1e-6
	}
	return *c.AbsTolerance
}

// GetRelTolerance returns the rel_tolerance value or the default.
func (c *TrackingConfig) GetRelTolerance() float64 {
	if c.RelTolerance == nil {
		return 1e-6
	}
	return *c.RelTolerance
}

// GetMaxStep returns the max_step value or the default.
func (c *TrackingConfig) GetMaxStep() float64 {
	if c.MaxStep == nil {
		return 50
	}
	return *c.MaxStep
}

// IsExcluded reports whether plane id is in excluded_plane_ids.
func (c *TrackingConfig) IsExcluded(id int) bool {
	for _, x := range c.ExcludedPlaneIDs {
		if x == id {
			return true
		}
	}
	return false
}
