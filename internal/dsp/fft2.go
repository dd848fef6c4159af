// Package dsp provides the 2-D spectral helpers shared by the filtering
// and parameter engines. Transforms are composed from gonum's 1-D
// complex FFT applied along rows and then columns.
package dsp

import "gonum.org/v1/gonum/dsp/fourier"

// FFT2 computes the unnormalised 2-D DFT of a row-major rows×cols grid.
func FFT2(data []complex128, rows, cols int) []complex128 {
	out := make([]complex128, len(data))
	copy(out, data)
	transform2(out, rows, cols, false)
	return out
}

// IFFT2 computes the inverse 2-D DFT, normalised by rows*cols so that
// IFFT2(FFT2(x)) == x.
func IFFT2(data []complex128, rows, cols int) []complex128 {
	out := make([]complex128, len(data))
	copy(out, data)
	transform2(out, rows, cols, true)
	n := complex(float64(rows*cols), 0)
	for i := range out {
		out[i] /= n
	}
	return out
}

func transform2(data []complex128, rows, cols int, inverse bool) {
	rowFFT := fourier.NewCmplxFFT(cols)
	buf := make([]complex128, cols)
	for r := 0; r < rows; r++ {
		row := data[r*cols : (r+1)*cols]
		copy(buf, row)
		if inverse {
			rowFFT.Sequence(row, buf)
		} else {
			rowFFT.Coefficients(row, buf)
		}
	}

	colFFT := fourier.NewCmplxFFT(rows)
	colIn := make([]complex128, rows)
	colOut := make([]complex128, rows)
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			colIn[r] = data[r*cols+c]
		}
		if inverse {
			colFFT.Sequence(colOut, colIn)
		} else {
			colFFT.Coefficients(colOut, colIn)
		}
		for r := 0; r < rows; r++ {
			data[r*cols+c] = colOut[r]
		}
	}
}

// Shift2 swaps quadrants so the zero-frequency component moves to the
// grid centre, the 2-D analogue of an fftshift.
func Shift2(data []float64, rows, cols int) []float64 {
	out := make([]float64, len(data))
	halfR := rows / 2
	halfC := cols / 2
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			sr := (r + halfR) % rows
			sc := (c + halfC) % cols
			out[sr*cols+sc] = data[r*cols+c]
		}
	}
	return out
}
