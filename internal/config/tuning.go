package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// Scale policy names accepted by scale_policy.
const (
	ScalePolicyOverride = "override"
	ScalePolicyEstimate = "estimate"
)

// TuningConfig holds the post-processing parameters. Every field is
// optional; the Get* accessors supply defaults for fields left unset, so
// partial files are safe.
type TuningConfig struct {
	// Smoothing
	SmoothingWindow  *int  `json:"smoothing_window,omitempty"`
	SmoothingOrder   *int  `json:"smoothing_order,omitempty"`
	ApplySmoothing   *bool `json:"apply_smoothing,omitempty"`
	SmoothingWorkers *int  `json:"smoothing_workers,omitempty"`

	// Movement scale
	MovementScale *float64 `json:"movement_scale,omitempty"`
	ScalePolicy   *string  `json:"scale_policy,omitempty"` // "override" or "estimate"

	// Capture and playback
	SampleFPS      *float64 `json:"sample_fps,omitempty"`
	AnimationSpeed *float64 `json:"animation_speed,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set to its
// default value.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		SmoothingWindow:  ptrInt(7),
		SmoothingOrder:   ptrInt(2),
		ApplySmoothing:   ptrBool(true),
		SmoothingWorkers: ptrInt(0),
		MovementScale:    ptrFloat64(6.0),
		ScalePolicy:      ptrString(ScalePolicyOverride),
		SampleFPS:        ptrFloat64(10),
		AnimationSpeed:   ptrFloat64(0.2),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file must have a .json extension and be at most 1MB.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

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

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/pose/scale/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks the values that are set. Window/order compatibility is
// checked against the effective values so a file setting only one of
// them is validated against the default of the other.
func (c *TuningConfig) Validate() error {
	if c.SmoothingOrder != nil && *c.SmoothingOrder < 0 {
		return fmt.Errorf("smoothing_order must be non-negative, got %d", *c.SmoothingOrder)
	}
	if c.SmoothingWindow != nil {
		w := *c.SmoothingWindow
		if w < 3 || w%2 == 0 {
			return fmt.Errorf("smoothing_window must be an odd integer >= 3, got %d", w)
		}
	}
	if w, o := c.GetSmoothingWindow(), c.GetSmoothingOrder(); w < o+2 {
		return fmt.Errorf("smoothing_window %d too small for smoothing_order %d (need >= %d)", w, o, o+2)
	}
	if c.SmoothingWorkers != nil && *c.SmoothingWorkers < 0 {
		return fmt.Errorf("smoothing_workers must be non-negative, got %d", *c.SmoothingWorkers)
	}
	if c.MovementScale != nil && !positiveFinite(*c.MovementScale) {
		return fmt.Errorf("movement_scale must be positive, got %v", *c.MovementScale)
	}
	if c.ScalePolicy != nil {
		switch *c.ScalePolicy {
		case ScalePolicyOverride, ScalePolicyEstimate:
		default:
			return fmt.Errorf("invalid scale_policy %q (want %q or %q)", *c.ScalePolicy, ScalePolicyOverride, ScalePolicyEstimate)
		}
	}
	if c.SampleFPS != nil && !positiveFinite(*c.SampleFPS) {
		return fmt.Errorf("sample_fps must be positive, got %v", *c.SampleFPS)
	}
	if c.AnimationSpeed != nil && (*c.AnimationSpeed < 0 || math.IsNaN(*c.AnimationSpeed)) {
		return fmt.Errorf("animation_speed must be non-negative, got %v", *c.AnimationSpeed)
	}
	return nil
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// GetSmoothingWindow returns the smoothing_window value or the default.
func (c *TuningConfig) GetSmoothingWindow() int {
	if c.SmoothingWindow == nil {
		return 7
	}
	return *c.SmoothingWindow
}

// GetSmoothingOrder returns the smoothing_order value or the default.
func (c *TuningConfig) GetSmoothingOrder() int {
	if c.SmoothingOrder == nil {
		return 2
	}
	return *c.SmoothingOrder
}

// GetApplySmoothing returns the apply_smoothing value or the default.
func (c *TuningConfig) GetApplySmoothing() bool {
	if c.ApplySmoothing == nil {
		return true
	}
	return *c.ApplySmoothing
}

// GetSmoothingWorkers returns the smoothing_workers value or the default
// (0, meaning GOMAXPROCS).
func (c *TuningConfig) GetSmoothingWorkers() int {
	if c.SmoothingWorkers == nil {
		return 0
	}
	return *c.SmoothingWorkers
}

// GetMovementScale returns the movement_scale value or the default.
func (c *TuningConfig) GetMovementScale() float64 {
	if c.MovementScale == nil {
		return 6.0
	}
	return *c.MovementScale
}

// GetScalePolicy returns the scale_policy value or the default.
func (c *TuningConfig) GetScalePolicy() string {
	if c.ScalePolicy == nil || *c.ScalePolicy == "" {
		return ScalePolicyOverride
	}
	return *c.ScalePolicy
}

// GetSampleFPS returns the sample_fps value or the default.
func (c *TuningConfig) GetSampleFPS() float64 {
	if c.SampleFPS == nil {
		return 10
	}
	return *c.SampleFPS
}

// GetAnimationSpeed returns the animation_speed value or the default.
func (c *TuningConfig) GetAnimationSpeed() float64 {
	if c.AnimationSpeed == nil {
		return 0.2
	}
	return *c.AnimationSpeed
}
