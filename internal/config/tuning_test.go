package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	if cfg.SmoothingWindow == nil || *cfg.SmoothingWindow != 7 {
		t.Errorf("Expected SmoothingWindow 7, got %v", cfg.SmoothingWindow)
	}
	if cfg.SmoothingOrder == nil || *cfg.SmoothingOrder != 2 {
		t.Errorf("Expected SmoothingOrder 2, got %v", cfg.SmoothingOrder)
	}
	if cfg.ApplySmoothing == nil || *cfg.ApplySmoothing != true {
		t.Errorf("Expected ApplySmoothing true, got %v", cfg.ApplySmoothing)
	}
	if cfg.ScalePolicy == nil || *cfg.ScalePolicy != ScalePolicyOverride {
		t.Errorf("Expected ScalePolicy %q, got %v", ScalePolicyOverride, cfg.ScalePolicy)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}

	if cfg.GetMovementScale() != 6.0 {
		t.Errorf("GetMovementScale() = %f, want 6.0", cfg.GetMovementScale())
	}
	if cfg.GetSampleFPS() != 10 {
		t.Errorf("GetSampleFPS() = %f, want 10", cfg.GetSampleFPS())
	}
	if cfg.GetAnimationSpeed() != 0.2 {
		t.Errorf("GetAnimationSpeed() = %f, want 0.2", cfg.GetAnimationSpeed())
	}
}

func TestEmptyConfigGetters(t *testing.T) {
	cfg := EmptyTuningConfig()
	def := DefaultTuningConfig()

	if cfg.GetSmoothingWindow() != def.GetSmoothingWindow() {
		t.Errorf("GetSmoothingWindow() = %d, want %d", cfg.GetSmoothingWindow(), def.GetSmoothingWindow())
	}
	if cfg.GetSmoothingOrder() != def.GetSmoothingOrder() {
		t.Errorf("GetSmoothingOrder() = %d, want %d", cfg.GetSmoothingOrder(), def.GetSmoothingOrder())
	}
	if cfg.GetApplySmoothing() != def.GetApplySmoothing() {
		t.Errorf("GetApplySmoothing() = %v, want %v", cfg.GetApplySmoothing(), def.GetApplySmoothing())
	}
	if cfg.GetSmoothingWorkers() != 0 {
		t.Errorf("GetSmoothingWorkers() = %d, want 0", cfg.GetSmoothingWorkers())
	}
	if cfg.GetScalePolicy() != ScalePolicyOverride {
		t.Errorf("GetScalePolicy() = %q, want %q", cfg.GetScalePolicy(), ScalePolicyOverride)
	}
	if cfg.GetMovementScale() != def.GetMovementScale() {
		t.Errorf("GetMovementScale() = %f, want %f", cfg.GetMovementScale(), def.GetMovementScale())
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "smoothing_window": 11,
  "smoothing_order": 3,
  "apply_smoothing": false,
  "movement_scale": 4.5,
  "scale_policy": "estimate"
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GetSmoothingWindow() != 11 {
		t.Errorf("GetSmoothingWindow() = %d, want 11", cfg.GetSmoothingWindow())
	}
	if cfg.GetSmoothingOrder() != 3 {
		t.Errorf("GetSmoothingOrder() = %d, want 3", cfg.GetSmoothingOrder())
	}
	if cfg.GetApplySmoothing() {
		t.Error("GetApplySmoothing() = true, want false")
	}
	if cfg.GetMovementScale() != 4.5 {
		t.Errorf("GetMovementScale() = %f, want 4.5", cfg.GetMovementScale())
	}
	if cfg.GetScalePolicy() != ScalePolicyEstimate {
		t.Errorf("GetScalePolicy() = %q, want %q", cfg.GetScalePolicy(), ScalePolicyEstimate)
	}
	// Unset fields fall back to defaults.
	if cfg.GetSampleFPS() != 10 {
		t.Errorf("GetSampleFPS() = %f, want 10", cfg.GetSampleFPS())
	}
}

func TestLoadTuningConfig_Errors(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"wrong extension", "cfg.yaml", `{}`, ".json extension"},
		{"bad json", "bad.json", `{"smoothing_window":`, "parse config JSON"},
		{"even window", "even.json", `{"smoothing_window": 8}`, "odd integer"},
		{"window too small for order", "small.json", `{"smoothing_window": 5, "smoothing_order": 4}`, "too small"},
		{"order vs default window", "order.json", `{"smoothing_order": 6}`, "too small"},
		{"negative order", "neg.json", `{"smoothing_order": -1}`, "non-negative"},
		{"zero scale", "scale.json", `{"movement_scale": 0}`, "movement_scale"},
		{"unknown policy", "policy.json", `{"scale_policy": "mean"}`, "scale_policy"},
		{"zero fps", "fps.json", `{"sample_fps": 0}`, "sample_fps"},
		{"negative speed", "speed.json", `{"animation_speed": -1}`, "animation_speed"},
		{"negative workers", "workers.json", `{"smoothing_workers": -2}`, "smoothing_workers"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(tmpDir, tt.file)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("write: %v", err)
			}
			_, err := LoadTuningConfig(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadTuningConfig_MissingFile(t *testing.T) {
	_, err := LoadTuningConfig(filepath.Join(t.TempDir(), "missing.json"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	want := DefaultTuningConfig()

	if cfg.GetSmoothingWindow() != want.GetSmoothingWindow() ||
		cfg.GetSmoothingOrder() != want.GetSmoothingOrder() ||
		cfg.GetApplySmoothing() != want.GetApplySmoothing() ||
		cfg.GetMovementScale() != want.GetMovementScale() ||
		cfg.GetScalePolicy() != want.GetScalePolicy() ||
		cfg.GetSampleFPS() != want.GetSampleFPS() ||
		cfg.GetAnimationSpeed() != want.GetAnimationSpeed() {
		t.Errorf("defaults file drifted from DefaultTuningConfig: %+v", cfg)
	}
}
