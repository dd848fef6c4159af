package params

import (
	"math"

	"github.com/metrolab/toposcan/internal/surface"
)

// Hybrid holds the slope-derived parameters.
type Hybrid struct {
	// Sdq is the root mean square surface gradient, dimensionless.
	Sdq float64
	// Sdr is the developed interfacial area ratio in percent: how much
	// larger the true surface area is than its projection.
	Sdr float64
}

// ComputeHybrid evaluates the gradient parameters with central
// differences in the interior and one-sided differences along the
// edges. A flat or tilted plane yields Sdr close to zero and tilt-only
// Sdq.
func ComputeHybrid(s *surface.Surface) Hybrid {
	n := float64(s.Rows * s.Cols)
	sumSq := 0.0
	sumArea := 0.0
	for r := 0; r < s.Rows; r++ {
		for c := 0; c < s.Cols; c++ {
			gx := gradAt(s, r, c, 0, 1, s.StepX)
			gy := gradAt(s, r, c, 1, 0, s.StepY)
			g2 := gx*gx + gy*gy
			sumSq += g2
			sumArea += math.Sqrt(1+g2) - 1
		}
	}
	return Hybrid{
		Sdq: math.Sqrt(sumSq / n),
		Sdr: sumArea / n * 100,
	}
}

// gradAt estimates the height derivative at (r, c) along the direction
// (dr, dc), falling back to a one-sided difference at the grid edge.
func gradAt(s *surface.Surface, r, c, dr, dc int, step float64) float64 {
	rp, cp := r+dr, c+dc
	rm, cm := r-dr, c-dc
	span := 2.0
	if rp >= s.Rows || cp >= s.Cols {
		rp, cp = r, c
		span = 1
	}
	if rm < 0 || cm < 0 {
		rm, cm = r, c
		span--
	}
	if span == 0 {
		return 0
	}
	return (s.At(rp, cp) - s.At(rm, cm)) / (span * step)
}
