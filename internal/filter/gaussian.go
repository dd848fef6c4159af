package filter

import (
	"math"

	"github.com/metrolab/toposcan/internal/surface"
)

// sigmaFromCutoff converts a cutoff wavelength in samples into the
// standard deviation of the Gaussian kernel. The constant follows from
// requiring 50% amplitude transmission at the cutoff wavelength, the
// standard areal filter definition.
func sigmaFromCutoff(cutoffSamples float64) float64 {
	return cutoffSamples / math.Pi * math.Sqrt(math.Ln2/2)
}

// gaussianKernel builds a normalised half-kernel of the given sigma,
// truncated at four standard deviations. Index 0 is the centre weight.
func gaussianKernel(sigma float64) []float64 {
	radius := int(4*sigma + 0.5)
	if radius < 1 {
		radius = 1
	}
	half := make([]float64, radius+1)
	sum := 0.0
	for i := 0; i <= radius; i++ {
		w := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		half[i] = w
		if i == 0 {
			sum += w
		} else {
			sum += 2 * w
		}
	}
	for i := range half {
		half[i] /= sum
	}
	return half
}

// reflectIndex maps an out-of-range index back into [0, n) using
// symmetric boundary extension (a b c d -> d c b a | a b c d | d c b a).
// Mirror extension keeps edge rows from being biased toward zero; the
// kernel weights always sum to one regardless of position.
func reflectIndex(i, n int) int {
	for i < 0 || i >= n {
		if i < 0 {
			i = -i - 1
		} else {
			i = 2*n - i - 1
		}
	}
	return i
}

// convolveLine convolves one line with the half-kernel using reflect
// boundary handling. src and dst must not alias.
func convolveLine(dst, src []float64, half []float64) {
	n := len(src)
	radius := len(half) - 1
	for i := 0; i < n; i++ {
		acc := half[0] * src[i]
		for k := 1; k <= radius; k++ {
			acc += half[k] * (src[reflectIndex(i-k, n)] + src[reflectIndex(i+k, n)])
		}
		dst[i] = acc
	}
}

// smoothGrid runs the separable Gaussian over a row-major grid with
// per-axis sigmas expressed in samples.
func smoothGrid(data []float64, rows, cols int, sigmaX, sigmaY float64) []float64 {
	kernelX := gaussianKernel(sigmaX)
	kernelY := gaussianKernel(sigmaY)

	// Rows first.
	tmp := make([]float64, len(data))
	for r := 0; r < rows; r++ {
		convolveLine(tmp[r*cols:(r+1)*cols], data[r*cols:(r+1)*cols], kernelX)
	}

	// Then columns.
	out := make([]float64, len(data))
	colIn := make([]float64, rows)
	colOut := make([]float64, rows)
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			colIn[r] = tmp[r*cols+c]
		}
		convolveLine(colOut, colIn, kernelY)
		for r := 0; r < rows; r++ {
			out[r*cols+c] = colOut[r]
		}
	}
	return out
}

// gaussianLowpass returns the long-wavelength component of s at the
// given cutoff wavelength.
func gaussianLowpass(s *surface.Surface, cutoff float64) *surface.Surface {
	sigmaX := sigmaFromCutoff(cutoff / s.StepX)
	sigmaY := sigmaFromCutoff(cutoff / s.StepY)
	data := smoothGrid(s.Data, s.Rows, s.Cols, sigmaX, sigmaY)

	out := s.Clone()
	out.Data = data
	return out
}
