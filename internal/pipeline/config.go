package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/metrolab/toposcan/internal/filter"
	"github.com/metrolab/toposcan/internal/level"
	"github.com/metrolab/toposcan/internal/params"
)

// Config is the declarative description of one analysis recipe. The
// schema is plain JSON so a recipe can travel with the measurement
// data. Fields omitted from the JSON retain their defaults, so partial
// configs are safe; Validate rejects contradictory values before any
// file is touched.
type Config struct {
	// FilterType selects the waviness/roughness decomposition:
	// "gaussian", "robust_gaussian" or "spline".
	FilterType *string `json:"filter_type,omitempty"`
	// CutoffUM is the filter cutoff wavelength in micrometres.
	CutoffUM *float64 `json:"cutoff_um,omitempty"`
	// LevelingOrder is the polynomial form-removal order, 0 to 6.
	LevelingOrder *int `json:"leveling_order,omitempty"`
	// MaxInvalidFraction aborts a file whose invalid-sample fraction
	// exceeds this threshold, in [0, 1].
	MaxInvalidFraction *float64 `json:"max_invalid_fraction,omitempty"`
	// MaterialRatioWindow is the secant window in percent for the
	// functional parameters.
	MaterialRatioWindow *float64 `json:"material_ratio_window,omitempty"`
	// RobustMaxIterations caps the robust filter's reweighting passes.
	RobustMaxIterations *int `json:"robust_max_iterations,omitempty"`
	// RobustTolerance is the robust filter's relative convergence
	// tolerance.
	RobustTolerance *float64 `json:"robust_tolerance,omitempty"`
	// Workers bounds batch concurrency; 0 or omitted means one worker
	// per CPU.
	Workers *int `json:"workers,omitempty"`
}

// LoadConfig loads a Config from a JSON file and validates it.
func LoadConfig(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration values before any measurement is
// processed.
func (c *Config) Validate() error {
	if c.FilterType != nil {
		if _, err := filter.ParseType(*c.FilterType); err != nil {
			return err
		}
	}
	if c.CutoffUM != nil && *c.CutoffUM <= 0 {
		return fmt.Errorf("cutoff_um must be positive, got %g", *c.CutoffUM)
	}
	if c.LevelingOrder != nil {
		if *c.LevelingOrder < 0 || *c.LevelingOrder > level.MaxOrder {
			return fmt.Errorf("leveling_order must be between 0 and %d, got %d", level.MaxOrder, *c.LevelingOrder)
		}
	}
	if c.MaxInvalidFraction != nil {
		if *c.MaxInvalidFraction < 0 || *c.MaxInvalidFraction > 1 {
			return fmt.Errorf("max_invalid_fraction must be between 0 and 1, got %g", *c.MaxInvalidFraction)
		}
	}
	if c.MaterialRatioWindow != nil {
		if *c.MaterialRatioWindow <= 0 || *c.MaterialRatioWindow >= 100 {
			return fmt.Errorf("material_ratio_window must be in (0, 100), got %g", *c.MaterialRatioWindow)
		}
	}
	if c.RobustMaxIterations != nil && *c.RobustMaxIterations < 1 {
		return fmt.Errorf("robust_max_iterations must be at least 1, got %d", *c.RobustMaxIterations)
	}
	if c.RobustTolerance != nil && *c.RobustTolerance <= 0 {
		return fmt.Errorf("robust_tolerance must be positive, got %g", *c.RobustTolerance)
	}
	if c.Workers != nil && *c.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", *c.Workers)
	}
	return nil
}

// GetFilterType returns the filter selection or the default Gaussian.
func (c *Config) GetFilterType() filter.Type {
	if c.FilterType == nil {
		return filter.Gaussian
	}
	typ, err := filter.ParseType(*c.FilterType)
	if err != nil {
		return filter.Gaussian
	}
	return typ
}

// GetCutoffUM returns the cutoff wavelength or the default 80
// micrometres.
func (c *Config) GetCutoffUM() float64 {
	if c.CutoffUM == nil {
		return 80.0
	}
	return *c.CutoffUM
}

// GetLevelingOrder returns the form-removal order or the default 1, a
// plane fit.
func (c *Config) GetLevelingOrder() int {
	if c.LevelingOrder == nil {
		return 1
	}
	return *c.LevelingOrder
}

// GetMaxInvalidFraction returns the invalid-sample threshold or the
// default 0.5.
func (c *Config) GetMaxInvalidFraction() float64 {
	if c.MaxInvalidFraction == nil {
		return 0.5
	}
	return *c.MaxInvalidFraction
}

// GetMaterialRatioWindow returns the functional-parameter window or
// the standard default.
func (c *Config) GetMaterialRatioWindow() float64 {
	if c.MaterialRatioWindow == nil {
		return params.DefaultMaterialRatioWindow
	}
	return *c.MaterialRatioWindow
}

// GetFilterOptions returns the robust filter tuning.
func (c *Config) GetFilterOptions() filter.Options {
	var opts filter.Options
	if c.RobustMaxIterations != nil {
		opts.MaxIterations = *c.RobustMaxIterations
	}
	if c.RobustTolerance != nil {
		opts.Tolerance = *c.RobustTolerance
	}
	return opts
}

// GetWorkers returns the batch concurrency bound, defaulting to one
// worker per CPU.
func (c *Config) GetWorkers() int {
	if c.Workers == nil || *c.Workers == 0 {
		return runtime.NumCPU()
	}
	return *c.Workers
}
