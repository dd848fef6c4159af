// Package contact estimates elastic rough-surface contact behaviour
// with the Greenwood-Williamson asperity model: summits are detected on
// the measured grid, characterised by their density, mean tip radius
// and height spread, and the model then predicts contact count, real
// contact area and load as functions of the separation between the
// surface and a rigid flat counterpart.
package contact

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/metrolab/toposcan/internal/surface"
)

// SummitStats describes the asperity population of a surface.
type SummitStats struct {
	// Count is the number of detected summits.
	Count int
	// Density is summits per square micrometre.
	Density float64
	// MeanHeight is the mean summit height above the surface mean
	// plane, micrometres.
	MeanHeight float64
	// HeightStd is the standard deviation of summit heights,
	// micrometres.
	HeightStd float64
	// MeanRadius is the mean summit tip radius from the local
	// curvature, micrometres.
	MeanRadius float64
}

// Summits detects grid-local maxima and characterises them. A summit
// is a sample strictly higher than its eight neighbours; border samples
// are excluded because their curvature is undefined. Surfaces with
// invalid samples are rejected.
func Summits(s *surface.Surface) (SummitStats, error) {
	if !s.AllValid() {
		return SummitStats{}, fmt.Errorf("contact: surface still carries invalid samples; run the leveling stage first")
	}
	if s.Rows < 3 || s.Cols < 3 {
		return SummitStats{}, fmt.Errorf("contact: summit detection needs at least a 3x3 grid, got %dx%d", s.Rows, s.Cols)
	}

	mean := s.Mean()
	var heights, radii []float64
	for r := 1; r < s.Rows-1; r++ {
		for c := 1; c < s.Cols-1; c++ {
			z := s.At(r, c)
			peak := true
			for dr := -1; dr <= 1 && peak; dr++ {
				for dc := -1; dc <= 1; dc++ {
					if dr == 0 && dc == 0 {
						continue
					}
					if s.At(r+dr, c+dc) >= z {
						peak = false
						break
					}
				}
			}
			if !peak {
				continue
			}

			// Mean curvature from the two principal second differences.
			zxx := (s.At(r, c+1) - 2*z + s.At(r, c-1)) / (s.StepX * s.StepX)
			zyy := (s.At(r+1, c) - 2*z + s.At(r-1, c)) / (s.StepY * s.StepY)
			curv := -(zxx + zyy) / 2
			if curv <= 0 {
				continue
			}
			heights = append(heights, z-mean)
			radii = append(radii, 1/curv)
		}
	}
	if len(heights) < 2 {
		return SummitStats{}, fmt.Errorf("contact: found %d summits, need at least 2 to characterise the population", len(heights))
	}

	area := s.WidthUM() * s.HeightUM()
	return SummitStats{
		Count:      len(heights),
		Density:    float64(len(heights)) / area,
		MeanHeight: stat.Mean(heights, nil),
		HeightStd:  math.Sqrt(stat.Moment(2, heights, nil)),
		MeanRadius: stat.Mean(radii, nil),
	}, nil
}

// Model is a parameterised Greenwood-Williamson contact model.
type Model struct {
	// Stats is the asperity population the model was built from.
	Stats SummitStats
	// EffectiveModulus is the contact modulus E* in the caller's
	// pressure unit; load predictions carry the same unit.
	EffectiveModulus float64

	dist distuv.Normal
}

// NewModel builds a contact model from detected summit statistics.
func NewModel(stats SummitStats, effectiveModulus float64) (*Model, error) {
	if stats.HeightStd <= 0 {
		return nil, fmt.Errorf("contact: summit height spread must be positive, got %g", stats.HeightStd)
	}
	if stats.MeanRadius <= 0 || stats.Density <= 0 {
		return nil, fmt.Errorf("contact: summit density and radius must be positive")
	}
	if effectiveModulus <= 0 {
		return nil, fmt.Errorf("contact: effective modulus must be positive, got %g", effectiveModulus)
	}
	return &Model{
		Stats:            stats,
		EffectiveModulus: effectiveModulus,
		dist:             distuv.Normal{Mu: stats.MeanHeight, Sigma: stats.HeightStd},
	}, nil
}

// FromSurface detects summits and builds the model in one step.
func FromSurface(s *surface.Surface, effectiveModulus float64) (*Model, error) {
	stats, err := Summits(s)
	if err != nil {
		return nil, err
	}
	return NewModel(stats, effectiveModulus)
}

// ContactFraction returns the fraction of summits touching a rigid
// flat at the given separation above the mean plane.
func (m *Model) ContactFraction(separation float64) float64 {
	return m.dist.Survival(separation)
}

// ContactDensity returns touching summits per square micrometre at the
// given separation.
func (m *Model) ContactDensity(separation float64) float64 {
	return m.Stats.Density * m.ContactFraction(separation)
}

// RealAreaFraction returns the real contact area divided by the
// nominal area at the given separation. Each touching summit
// contributes a Hertzian contact patch of area pi R (z - d).
func (m *Model) RealAreaFraction(separation float64) float64 {
	return math.Pi * m.Stats.Density * m.Stats.MeanRadius *
		m.expectedOverlap(separation, 1)
}

// MeanPressure returns the load per unit nominal area at the given
// separation, in the unit of the effective modulus times micrometres
// squared per micrometre squared.
func (m *Model) MeanPressure(separation float64) float64 {
	return 4.0 / 3.0 * m.Stats.Density * m.EffectiveModulus *
		math.Sqrt(m.Stats.MeanRadius) * m.expectedOverlap(separation, 1.5)
}

// expectedOverlap integrates (z - d)^p over the summit height
// distribution above the separation d, the F_p integral of the
// Greenwood-Williamson formulation. p = 1 has a closed form; other
// exponents use Simpson's rule over the significant tail.
func (m *Model) expectedOverlap(d, p float64) float64 {
	if p == 1 {
		sigma := m.dist.Sigma
		return sigma*sigma*m.dist.Prob(d) + (m.dist.Mu-d)*m.dist.Survival(d)
	}
	return m.tailIntegral(d, p)
}

// tailIntegral evaluates the expectation of (z - d)^p for z > d with
// composite Simpson integration out to eight standard deviations.
func (m *Model) tailIntegral(d, p float64) float64 {
	upper := m.dist.Mu + 8*m.dist.Sigma
	if upper <= d {
		return 0
	}
	const steps = 400
	h := (upper - d) / steps
	sum := 0.0
	for i := 0; i <= steps; i++ {
		z := d + float64(i)*h
		f := math.Pow(z-d, p) * m.dist.Prob(z)
		switch {
		case i == 0 || i == steps:
			sum += f
		case i%2 == 1:
			sum += 4 * f
		default:
			sum += 2 * f
		}
	}
	return sum * h / 3
}
