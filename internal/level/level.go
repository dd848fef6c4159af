package level

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/metrolab/toposcan/internal/surface"
)

// ErrInsufficientValidData reports that the invalid-sample fraction
// exceeds the configured threshold, so leveling and filling would be
// unreliable. The pipeline halts for the affected file.
var ErrInsufficientValidData = errors.New("level: too many invalid samples for reliable leveling")

// MaxOrder bounds the polynomial order; higher orders are numerically
// fragile on normalised grid coordinates and never used in practice.
const MaxOrder = 6

// Options configures the leveling and outlier stage.
type Options struct {
	// Order is the polynomial order of the form fit: 0 removes the mean,
	// 1 a plane, n adds all terms x^i*y^j with i+j <= n.
	Order int
	// OutlierThreshold is the maximum tolerated fraction of invalid
	// samples, in [0, 1].
	OutlierThreshold float64
}

// Process levels the surface and fills invalid samples, returning a
// dense, form-free surface ready for filtering. The input is never
// mutated.
func Process(s *surface.Surface, opts Options) (*surface.Surface, error) {
	if opts.Order < 0 || opts.Order > MaxOrder {
		return nil, fmt.Errorf("level: order %d out of range [0, %d]", opts.Order, MaxOrder)
	}
	if opts.OutlierThreshold < 0 || opts.OutlierThreshold > 1 {
		return nil, fmt.Errorf("level: outlier threshold %g out of range [0, 1]", opts.OutlierThreshold)
	}
	if frac := s.InvalidFraction(); frac > opts.OutlierThreshold {
		return nil, fmt.Errorf("%w: %.1f%% invalid exceeds %.1f%% threshold",
			ErrInsufficientValidData, frac*100, opts.OutlierThreshold*100)
	}

	leveled, err := Level(s, opts.Order)
	if err != nil {
		return nil, err
	}
	return FillInvalid(leveled)
}

// Level fits a polynomial of the given order over the valid samples and
// subtracts the fitted form from the whole grid. Invalid samples carry
// no fit weight but are still corrected by the fitted surface.
func Level(s *surface.Surface, order int) (*surface.Surface, error) {
	if order < 0 || order > MaxOrder {
		return nil, fmt.Errorf("level: order %d out of range [0, %d]", order, MaxOrder)
	}

	terms := polyTerms(order)
	nValid := 0
	for i := range s.Data {
		if s.Valid == nil || s.Valid[i] {
			nValid++
		}
	}
	if nValid < len(terms) {
		return nil, fmt.Errorf("%w: %d valid samples cannot constrain %d fit terms",
			ErrInsufficientValidData, nValid, len(terms))
	}

	// Normalised coordinates in [-1, 1] keep the Vandermonde system well
	// conditioned at higher orders.
	xs := normCoords(s.Cols)
	ys := normCoords(s.Rows)

	a := mat.NewDense(nValid, len(terms), nil)
	b := mat.NewVecDense(nValid, nil)
	row := 0
	for r := 0; r < s.Rows; r++ {
		for c := 0; c < s.Cols; c++ {
			i := r*s.Cols + c
			if s.Valid != nil && !s.Valid[i] {
				continue
			}
			for k, term := range terms {
				a.Set(row, k, powInt(xs[c], term.px)*powInt(ys[r], term.py))
			}
			b.SetVec(row, s.Data[i])
			row++
		}
	}

	var qr mat.QR
	qr.Factorize(a)
	coef := mat.NewDense(len(terms), 1, nil)
	if err := qr.SolveTo(coef, false, b); err != nil {
		return nil, fmt.Errorf("level: least-squares solve failed: %w", err)
	}

	data := make([]float64, len(s.Data))
	for r := 0; r < s.Rows; r++ {
		for c := 0; c < s.Cols; c++ {
			i := r*s.Cols + c
			form := 0.0
			for k, term := range terms {
				form += coef.At(k, 0) * powInt(xs[c], term.px) * powInt(ys[r], term.py)
			}
			data[i] = s.Data[i] - form
		}
	}

	out := s.Clone()
	out.Data = data
	return out, nil
}

// polyTerm is one monomial x^px * y^py of the form fit.
type polyTerm struct{ px, py int }

func polyTerms(order int) []polyTerm {
	var terms []polyTerm
	for total := 0; total <= order; total++ {
		for px := 0; px <= total; px++ {
			terms = append(terms, polyTerm{px: px, py: total - px})
		}
	}
	return terms
}

func normCoords(n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		return out
	}
	for i := range out {
		out[i] = 2*float64(i)/float64(n-1) - 1
	}
	return out
}

func powInt(x float64, n int) float64 {
	out := 1.0
	for i := 0; i < n; i++ {
		out *= x
	}
	return out
}
