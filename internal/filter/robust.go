package filter

import (
	"context"
	"math"
	"sort"

	"github.com/metrolab/toposcan/internal/surface"
)

// biweightScale converts the median absolute residual into the Tukey
// biweight rejection threshold used by the robust regression filter.
const biweightScale = 4.4478

// robustLowpass computes the long-wavelength component with iterative
// reweighting: samples far from the current mean surface (scratches,
// particles, spikes) lose influence so they do not drag the waviness
// toward themselves. Iteration stops when the waviness changes less
// than tol relative to the surface RMS, or at the iteration cap. The
// cap being reached is reported, never silently accepted.
func robustLowpass(ctx context.Context, s *surface.Surface, cutoff float64, opts Options) (*surface.Surface, int, bool, error) {
	sigmaX := sigmaFromCutoff(cutoff / s.StepX)
	sigmaY := sigmaFromCutoff(cutoff / s.StepY)
	n := len(s.Data)

	// Scale for the relative convergence criterion. A perfectly flat
	// surface converges immediately below.
	rms := 0.0
	for _, v := range s.Data {
		rms += v * v
	}
	rms = math.Sqrt(rms / float64(n))

	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1
	}

	mean := smoothGrid(s.Data, s.Rows, s.Cols, sigmaX, sigmaY)
	iterations := 0
	exceeded := true

	weighted := make([]float64, n)
	resid := make([]float64, n)
	for iter := 0; iter < opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, iterations, false, err
		}
		iterations = iter + 1

		for i := range resid {
			resid[i] = math.Abs(s.Data[i] - mean[i])
		}
		c := biweightScale * median(resid)
		if c < 1e-15 {
			// Residuals vanished; nothing left to down-weight.
			exceeded = false
			break
		}

		for i := range weights {
			u := (s.Data[i] - mean[i]) / c
			if math.Abs(u) >= 1 {
				weights[i] = 0
				continue
			}
			d := 1 - u*u
			weights[i] = d * d
		}

		for i := range weighted {
			weighted[i] = weights[i] * s.Data[i]
		}
		num := smoothGrid(weighted, s.Rows, s.Cols, sigmaX, sigmaY)
		den := smoothGrid(weights, s.Rows, s.Cols, sigmaX, sigmaY)

		maxDelta := 0.0
		for i := range num {
			d := den[i]
			if d < 1e-12 {
				d = 1e-12
			}
			next := num[i] / d
			if delta := math.Abs(next - mean[i]); delta > maxDelta {
				maxDelta = delta
			}
			mean[i] = next
		}

		if rms == 0 || maxDelta <= opts.Tolerance*rms {
			exceeded = false
			break
		}
	}

	out := s.Clone()
	out.Data = mean
	return out, iterations, exceeded, nil
}

// median returns the median of values; the slice is reordered.
func median(values []float64) float64 {
	sort.Float64s(values)
	n := len(values)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}
