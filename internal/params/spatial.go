package params

import (
	"math"
	"math/cmplx"

	"github.com/metrolab/toposcan/internal/dsp"
	"github.com/metrolab/toposcan/internal/surface"
)

// acfThreshold is the autocorrelation level that defines "decayed" for
// the spatial parameters.
const acfThreshold = 0.2

// Spatial holds the autocorrelation-derived parameters.
type Spatial struct {
	// Sal is the autocorrelation length in micrometres: the shortest
	// lag at which the normalised autocorrelation decays below 0.2.
	Sal float64
	// Str is the texture aspect ratio in [0, 1]: Sal divided by the
	// longest decay lag. Values near 1 indicate isotropic texture,
	// values near 0 a strongly directional one.
	Str float64
}

// ComputeSpatial evaluates Sal and Str from the circular
// autocorrelation of the mean-removed surface, computed spectrally.
// A flat surface has no defined autocorrelation and yields zeros, as
// does a surface whose autocorrelation never decays within the
// measured area.
func ComputeSpatial(s *surface.Surface) Spatial {
	rows, cols := s.Rows, s.Cols
	mean := s.Mean()

	grid := make([]complex128, rows*cols)
	for i, v := range s.Data {
		grid[i] = complex(v-mean, 0)
	}
	coeffs := dsp.FFT2(grid, rows, cols)
	for i, v := range coeffs {
		coeffs[i] = v * cmplx.Conj(v)
	}
	back := dsp.IFFT2(coeffs, rows, cols)

	acf := make([]float64, rows*cols)
	for i, v := range back {
		acf[i] = real(v)
	}
	zero := acf[0]
	if zero <= 0 {
		return Spatial{}
	}
	for i := range acf {
		acf[i] /= zero
	}
	acf = dsp.Shift2(acf, rows, cols)
	cr, cc := rows/2, cols/2

	// Grow the central correlation lobe, then measure the lag to every
	// cell just outside it. The shortest such lag is Sal, the longest
	// bounds the slowest decay direction.
	lobe := growLobe(acf, rows, cols, cr, cc)
	minLag, maxLag := math.Inf(1), 0.0
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if lobe[r*cols+c] || !touchesLobe(lobe, rows, cols, r, c) {
				continue
			}
			lag := math.Hypot(float64(r-cr)*s.StepY, float64(c-cc)*s.StepX)
			if lag < minLag {
				minLag = lag
			}
			if lag > maxLag {
				maxLag = lag
			}
		}
	}
	if math.IsInf(minLag, 1) || maxLag == 0 {
		// The lobe reaches the grid boundary in every direction.
		return Spatial{}
	}
	str := minLag / maxLag
	if str > 1 {
		str = 1
	}
	return Spatial{Sal: minLag, Str: str}
}

// growLobe flood-fills the 4-connected region of above-threshold
// autocorrelation containing the zero lag.
func growLobe(acf []float64, rows, cols, cr, cc int) []bool {
	lobe := make([]bool, rows*cols)
	stack := []int{cr*cols + cc}
	lobe[stack[0]] = true
	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		r, c := idx/cols, idx%cols
		for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
			nr, nc := r+d[0], c+d[1]
			if nr < 0 || nr >= rows || nc < 0 || nc >= cols {
				continue
			}
			ni := nr*cols + nc
			if lobe[ni] || acf[ni] < acfThreshold {
				continue
			}
			lobe[ni] = true
			stack = append(stack, ni)
		}
	}
	return lobe
}

// touchesLobe reports whether cell (r, c) is 4-adjacent to the lobe.
func touchesLobe(lobe []bool, rows, cols, r, c int) bool {
	for _, d := range [4][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		nr, nc := r+d[0], c+d[1]
		if nr < 0 || nr >= rows || nc < 0 || nc >= cols {
			continue
		}
		if lobe[nr*cols+nc] {
			return true
		}
	}
	return false
}
