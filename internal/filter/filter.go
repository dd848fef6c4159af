package filter

import (
	"context"
	"fmt"

	"github.com/metrolab/toposcan/internal/surface"
)

// Type selects a filter family. Algorithm choice is always an explicit
// input, never inferred from the data.
type Type string

const (
	Gaussian       Type = "gaussian"
	RobustGaussian Type = "robust_gaussian"
	Spline         Type = "spline"
)

// ParseType validates a filter family name from configuration.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case Gaussian, RobustGaussian, Spline:
		return Type(s), nil
	}
	return "", fmt.Errorf("filter: unknown filter type %q", s)
}

// Result is the outcome of one decomposition: two independently owned
// surfaces that sum to the input height-for-height.
type Result struct {
	// Waviness is the long-wavelength component at the cutoff.
	Waviness *surface.Surface
	// Roughness is the short-wavelength residual, input - waviness.
	Roughness *surface.Surface
	// Cutoff is the wavelength the decomposition was performed at, in
	// the same unit as the surface step sizes.
	Cutoff float64
	// Iterations counts robust reweighting passes; zero for the
	// single-pass filters.
	Iterations int
	// ConvergenceExceeded is set when the robust filter hit its
	// iteration cap before meeting tolerance. The result is still the
	// best-effort decomposition and remains usable.
	ConvergenceExceeded bool
}

// Options tunes the iterative robust filter. Zero values select the
// defaults.
type Options struct {
	// MaxIterations caps robust reweighting passes. Default 20.
	MaxIterations int
	// Tolerance is the relative change in the waviness component below
	// which iteration stops. Default 1e-6.
	Tolerance float64
}

const (
	defaultMaxIterations = 20
	defaultTolerance     = 1e-6
)

func (o Options) withDefaults() Options {
	if o.MaxIterations <= 0 {
		o.MaxIterations = defaultMaxIterations
	}
	if o.Tolerance <= 0 {
		o.Tolerance = defaultTolerance
	}
	return o
}

// Apply decomposes s at the given cutoff wavelength using the selected
// filter family with default options. The context bounds long-running
// robust iterations.
func Apply(ctx context.Context, s *surface.Surface, typ Type, cutoff float64) (*Result, error) {
	return ApplyOptions(ctx, s, typ, cutoff, Options{})
}

// ApplyOptions is Apply with explicit iteration options.
func ApplyOptions(ctx context.Context, s *surface.Surface, typ Type, cutoff float64, opts Options) (*Result, error) {
	if cutoff <= 0 {
		return nil, fmt.Errorf("filter: cutoff wavelength must be positive, got %g", cutoff)
	}
	if !s.AllValid() {
		return nil, fmt.Errorf("filter: surface still carries invalid samples; run the leveling stage first")
	}
	opts = opts.withDefaults()

	var (
		waviness   *surface.Surface
		iterations int
		exceeded   bool
		err        error
	)
	switch typ {
	case Gaussian:
		waviness = gaussianLowpass(s, cutoff)
	case RobustGaussian:
		waviness, iterations, exceeded, err = robustLowpass(ctx, s, cutoff, opts)
		if err != nil {
			return nil, err
		}
	case Spline:
		waviness, err = splineLowpass(s, cutoff)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("filter: unknown filter type %q", typ)
	}

	roughness, err := s.Subtract(waviness)
	if err != nil {
		return nil, err
	}
	return &Result{
		Waviness:            waviness,
		Roughness:           roughness,
		Cutoff:              cutoff,
		Iterations:          iterations,
		ConvergenceExceeded: exceeded,
	}, nil
}
