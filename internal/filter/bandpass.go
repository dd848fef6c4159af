package filter

import (
	"fmt"
	"math"

	"github.com/metrolab/toposcan/internal/dsp"
	"github.com/metrolab/toposcan/internal/surface"
)

// Bandpass isolates the spectral band between two cutoff wavelengths by
// masking the 2-D Fourier transform. Useful for inspecting periodic
// machining marks in a known wavelength range.
func Bandpass(s *surface.Surface, lowCutoff, highCutoff float64) (*surface.Surface, error) {
	if lowCutoff <= 0 || highCutoff <= 0 {
		return nil, fmt.Errorf("filter: cutoff wavelengths must be positive")
	}
	if lowCutoff >= highCutoff {
		return nil, fmt.Errorf("filter: low cutoff %g must be below high cutoff %g", lowCutoff, highCutoff)
	}
	if !s.AllValid() {
		return nil, fmt.Errorf("filter: surface still carries invalid samples; run the leveling stage first")
	}

	rows, cols := s.Rows, s.Cols
	grid := make([]complex128, rows*cols)
	for i, v := range s.Data {
		grid[i] = complex(v, 0)
	}
	coeffs := dsp.FFT2(grid, rows, cols)

	// Radial spatial-frequency mask. Frequencies are cycles per
	// micrometre; the pass band keeps 1/high <= f <= 1/low.
	fLow := 1 / highCutoff
	fHigh := 1 / lowCutoff
	for r := 0; r < rows; r++ {
		fy := freqAt(r, rows, s.StepY)
		for c := 0; c < cols; c++ {
			fx := freqAt(c, cols, s.StepX)
			f := math.Hypot(fx, fy)
			if f < fLow || f > fHigh {
				coeffs[r*cols+c] = 0
			}
		}
	}

	back := dsp.IFFT2(coeffs, rows, cols)
	data := make([]float64, len(back))
	for i, v := range back {
		data[i] = real(v)
	}
	out := s.Clone()
	out.Data = data
	return out, nil
}

// freqAt returns the signed spatial frequency of DFT bin i for a line of
// n samples at the given step.
func freqAt(i, n int, step float64) float64 {
	if i > n/2 {
		i -= n
	}
	return float64(i) / (float64(n) * step)
}

// MedianDenoise replaces each sample with the median of its size x size
// neighbourhood, with mirror extension at the edges. Size must be odd.
// This is a pre-filter for shot noise, not part of the waviness/
// roughness decomposition.
func MedianDenoise(s *surface.Surface, size int) (*surface.Surface, error) {
	if size < 3 || size%2 == 0 {
		return nil, fmt.Errorf("filter: median window must be an odd size >= 3, got %d", size)
	}

	radius := size / 2
	window := make([]float64, 0, size*size)
	data := make([]float64, len(s.Data))
	for r := 0; r < s.Rows; r++ {
		for c := 0; c < s.Cols; c++ {
			window = window[:0]
			for dr := -radius; dr <= radius; dr++ {
				rr := reflectIndex(r+dr, s.Rows)
				for dc := -radius; dc <= radius; dc++ {
					cc := reflectIndex(c+dc, s.Cols)
					window = append(window, s.At(rr, cc))
				}
			}
			data[r*s.Cols+c] = median(window)
		}
	}
	out := s.Clone()
	out.Data = data
	return out, nil
}
