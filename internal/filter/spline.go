package filter

import (
	"fmt"
	"math"

	"github.com/metrolab/toposcan/internal/surface"
)

// splineLowpass computes the long-wavelength component with a smoothing
// spline applied along rows and then columns. The cutoff maps to the
// spline stiffness through alpha = 1 / (2 sin(pi dx / lambda_c)), which
// gives 50% transmission at the cutoff wavelength, matching the Gaussian
// filter's amplitude characteristic. The spline uses natural boundary
// conditions, which avoids the Gaussian's mirror-extension behaviour at
// the grid edges.
func splineLowpass(s *surface.Surface, cutoff float64) (*surface.Surface, error) {
	if cutoff <= 2*s.StepX || cutoff <= 2*s.StepY {
		return nil, fmt.Errorf("filter: spline cutoff %g must exceed twice the sample spacing", cutoff)
	}

	data := append([]float64(nil), s.Data...)

	// Rows.
	alphaX := splineAlpha(s.StepX, cutoff)
	rowSolver, err := newSplineSolver(s.Cols, alphaX)
	if err != nil {
		return nil, err
	}
	for r := 0; r < s.Rows; r++ {
		row := data[r*s.Cols : (r+1)*s.Cols]
		rowSolver.solve(row)
	}

	// Columns.
	alphaY := splineAlpha(s.StepY, cutoff)
	colSolver, err := newSplineSolver(s.Rows, alphaY)
	if err != nil {
		return nil, err
	}
	colBuf := make([]float64, s.Rows)
	for c := 0; c < s.Cols; c++ {
		for r := 0; r < s.Rows; r++ {
			colBuf[r] = data[r*s.Cols+c]
		}
		colSolver.solve(colBuf)
		for r := 0; r < s.Rows; r++ {
			data[r*s.Cols+c] = colBuf[r]
		}
	}

	out := s.Clone()
	out.Data = data
	return out, nil
}

func splineAlpha(step, cutoff float64) float64 {
	return 1 / (2 * math.Sin(math.Pi*step/cutoff))
}

// splineSolver factorises (I + alpha^4 * D2' D2) once for a line length
// and solves repeated right-hand sides. The matrix is symmetric
// pentadiagonal positive definite, so an LU factorisation without
// pivoting is stable.
//
// gonum's mat package offers no direct banded triangular solver for this
// shape, and densifying an n x n system per scan line would be
// quadratic in memory, so the five-band elimination is done in place.
type splineSolver struct {
	n int
	// Factorised bands: sub2, sub1, diag, sup1, sup2.
	l2, l1, d, u1, u2 []float64
}

func newSplineSolver(n int, alpha float64) (*splineSolver, error) {
	if n < 3 {
		return nil, fmt.Errorf("filter: spline needs at least 3 samples per line, got %d", n)
	}
	a4 := alpha * alpha * alpha * alpha

	// Bands of I + a4 * D2'D2 with natural (free-end) second differences.
	d := make([]float64, n)
	u1 := make([]float64, n)
	u2 := make([]float64, n)
	for i := 0; i < n; i++ {
		switch {
		case i == 0 || i == n-1:
			d[i] = 1 + a4*1
		case i == 1 || i == n-2:
			d[i] = 1 + a4*5
		default:
			d[i] = 1 + a4*6
		}
		if i < n-1 {
			if i == 0 || i == n-2 {
				u1[i] = a4 * -2
			} else {
				u1[i] = a4 * -4
			}
		}
		if i < n-2 {
			u2[i] = a4 * 1
		}
	}
	// n == 3 has overlapping boundary rows; recompute directly.
	if n == 3 {
		d[0] = 1 + a4*1
		d[1] = 1 + a4*4
		d[2] = 1 + a4*1
		u1[0] = a4 * -2
		u1[1] = a4 * -2
		u2[0] = a4 * 1
	}

	s := &splineSolver{
		n:  n,
		l2: make([]float64, n),
		l1: make([]float64, n),
		d:  append([]float64(nil), d...),
		u1: append([]float64(nil), u1...),
		u2: append([]float64(nil), u2...),
	}
	s.factorise()
	return s, nil
}

// factorise performs the pentadiagonal LU decomposition. The symmetric
// input bands double as the initial sub-diagonals.
func (s *splineSolver) factorise() {
	n := s.n
	// Symmetric: sub-diagonals start equal to the super-diagonals.
	sub1 := append([]float64(nil), s.u1...)
	sub2 := append([]float64(nil), s.u2...)

	for i := 1; i < n; i++ {
		// Eliminate sub1[i-1] (entry at row i, column i-1).
		m1 := sub1[i-1] / s.d[i-1]
		s.l1[i] = m1
		s.d[i] -= m1 * s.u1[i-1]
		if i < n-1 {
			s.u1[i] -= m1 * s.u2[i-1]
		}

		// Eliminate sub2[i-1] (entry at row i+1, column i-1).
		if i+1 < n {
			m2 := sub2[i-1] / s.d[i-1]
			s.l2[i+1] = m2
			sub1[i] -= m2 * s.u1[i-1]
			s.d[i+1] -= m2 * s.u2[i-1]
		}
	}
}

// solve replaces rhs with the solution in place.
func (s *splineSolver) solve(rhs []float64) {
	n := s.n
	// Forward substitution.
	for i := 1; i < n; i++ {
		rhs[i] -= s.l1[i] * rhs[i-1]
		if i >= 2 {
			rhs[i] -= s.l2[i] * rhs[i-2]
		}
	}
	// Back substitution.
	rhs[n-1] /= s.d[n-1]
	if n >= 2 {
		rhs[n-2] = (rhs[n-2] - s.u1[n-2]*rhs[n-1]) / s.d[n-2]
	}
	for i := n - 3; i >= 0; i-- {
		rhs[i] = (rhs[i] - s.u1[i]*rhs[i+1] - s.u2[i]*rhs[i+2]) / s.d[i]
	}
}
