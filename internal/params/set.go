package params

import (
	"fmt"

	"github.com/metrolab/toposcan/internal/surface"
)

// Options tunes the parameter engine. The zero value selects the
// standard defaults.
type Options struct {
	// MaterialRatioWindow is the secant window in percent for the
	// functional parameters. Zero means DefaultMaterialRatioWindow.
	MaterialRatioWindow float64
}

// Set is the full areal parameter set for one surface.
type Set struct {
	Amplitude
	Spatial
	Hybrid
	Functional
}

// Symbols lists every areal parameter in reporting order.
func Symbols() []string {
	return []string{
		"Sa", "Sq", "Ssk", "Sku", "Sp", "Sv", "Sz",
		"Sal", "Str",
		"Sdq", "Sdr",
		"Sk", "Spk", "Svk", "Smr1", "Smr2",
		"Vmp", "Vmc", "Vvv", "Vvc",
	}
}

// Compute evaluates the full areal parameter set. The surface must be
// dense; run leveling and invalid-sample filling first.
func Compute(s *surface.Surface, opts Options) (*Set, error) {
	if !s.AllValid() {
		return nil, fmt.Errorf("params: surface still carries invalid samples; run the leveling stage first")
	}

	functional, err := ComputeFunctional(s, opts.MaterialRatioWindow)
	if err != nil {
		return nil, err
	}
	return &Set{
		Amplitude:  ComputeAmplitude(s),
		Spatial:    ComputeSpatial(s),
		Hybrid:     ComputeHybrid(s),
		Functional: functional,
	}, nil
}

// Map returns the parameter values keyed by symbol, for persistence
// and report output.
func (s *Set) Map() map[string]float64 {
	return map[string]float64{
		"Sa": s.Sa, "Sq": s.Sq, "Ssk": s.Ssk, "Sku": s.Sku,
		"Sp": s.Sp, "Sv": s.Sv, "Sz": s.Sz,
		"Sal": s.Sal, "Str": s.Str,
		"Sdq": s.Sdq, "Sdr": s.Sdr,
		"Sk": s.Sk, "Spk": s.Spk, "Svk": s.Svk,
		"Smr1": s.Smr1, "Smr2": s.Smr2,
		"Vmp": s.Vmp, "Vmc": s.Vmc, "Vvv": s.Vvv, "Vvc": s.Vvc,
	}
}
