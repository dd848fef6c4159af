package params

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/interp"

	"github.com/metrolab/toposcan/internal/surface"
)

// DefaultMaterialRatioWindow is the width in percent of the material
// ratio window used to locate the equivalence line on the
// Abbott-Firestone curve.
const DefaultMaterialRatioWindow = 40.0

// Material ratios bounding the core volume for the V parameters.
const (
	peakMaterialRatio   = 10.0
	valleyMaterialRatio = 80.0
)

// Functional holds the parameters derived from the areal material
// ratio (Abbott-Firestone) curve. Heights are micrometres, ratios are
// percent, volumes are micrometres (volume per unit projected area).
type Functional struct {
	// Sk is the core roughness depth, the height span of the
	// equivalence line across the full material ratio axis.
	Sk float64
	// Spk is the reduced peak height above the core.
	Spk float64
	// Svk is the reduced valley depth below the core.
	Svk float64
	// Smr1 is the material ratio separating peaks from the core.
	Smr1 float64
	// Smr2 is the material ratio separating the core from valleys.
	Smr2 float64
	// Vmp is the peak material volume.
	Vmp float64
	// Vmc is the core material volume.
	Vmc float64
	// Vvv is the valley void volume.
	Vvv float64
	// Vvc is the core void volume.
	Vvc float64
}

// abbottCurve is the areal material ratio curve: height as a function
// of the material ratio in percent, non-increasing in mr.
type abbottCurve struct {
	mr, z []float64
	pl    interp.PiecewiseLinear
}

func newAbbottCurve(s *surface.Surface) (*abbottCurve, error) {
	n := len(s.Data)
	z := append([]float64(nil), s.Data...)
	sort.Sort(sort.Reverse(sort.Float64Slice(z)))

	mr := make([]float64, n)
	for i := range mr {
		mr[i] = 100 * float64(i) / float64(n-1)
	}
	c := &abbottCurve{mr: mr, z: z}
	if err := c.pl.Fit(mr, z); err != nil {
		return nil, fmt.Errorf("params: material ratio curve: %w", err)
	}
	return c, nil
}

// heightAt returns the curve height at a material ratio.
func (c *abbottCurve) heightAt(mr float64) float64 { return c.pl.Predict(mr) }

// integral evaluates the integral of the curve height over the
// material ratio range [a, b] with the trapezoid rule on the exact
// curve vertices.
func (c *abbottCurve) integral(a, b float64) float64 {
	if b <= a {
		return 0
	}
	xs := []float64{a}
	ys := []float64{c.heightAt(a)}
	lo := sort.SearchFloat64s(c.mr, a)
	for i := lo; i < len(c.mr) && c.mr[i] < b; i++ {
		if c.mr[i] <= a {
			continue
		}
		xs = append(xs, c.mr[i])
		ys = append(ys, c.z[i])
	}
	xs = append(xs, b)
	ys = append(ys, c.heightAt(b))
	return integrate.Trapezoidal(xs, ys)
}

// crossBelow returns the smallest material ratio where the curve drops
// to or below height h.
func (c *abbottCurve) crossBelow(h float64) float64 {
	i := sort.Search(len(c.z), func(i int) bool { return c.z[i] <= h })
	if i == 0 {
		return 0
	}
	if i == len(c.z) {
		return 100
	}
	// Interpolate between the bracketing vertices.
	frac := (c.z[i-1] - h) / (c.z[i-1] - c.z[i])
	return c.mr[i-1] + frac*(c.mr[i]-c.mr[i-1])
}

// crossAbove returns the largest material ratio where the curve is
// still at or above height h.
func (c *abbottCurve) crossAbove(h float64) float64 {
	i := sort.Search(len(c.z), func(i int) bool { return c.z[i] < h })
	if i == len(c.z) {
		return 100
	}
	if i == 0 {
		return 0
	}
	frac := (c.z[i-1] - h) / (c.z[i-1] - c.z[i])
	return c.mr[i-1] + frac*(c.mr[i]-c.mr[i-1])
}

// Smr returns the areal material ratio in percent at the given height,
// measured relative to the surface mean plane. Heights above the peak
// yield 0, heights below the deepest valley yield 100.
func Smr(s *surface.Surface, height float64) (float64, error) {
	curve, err := newAbbottCurve(s.Center())
	if err != nil {
		return 0, err
	}
	return curve.crossBelow(height), nil
}

// Smc returns the inverse material ratio: the height of the curve at a
// material ratio in percent, relative to the surface mean plane.
func Smc(s *surface.Surface, ratio float64) (float64, error) {
	if ratio < 0 || ratio > 100 {
		return 0, fmt.Errorf("params: material ratio must be in [0, 100], got %g", ratio)
	}
	curve, err := newAbbottCurve(s.Center())
	if err != nil {
		return 0, err
	}
	return curve.heightAt(ratio), nil
}

// ComputeFunctional evaluates the Sk family and the V volume
// parameters. The window is the material ratio span in percent over
// which the flattest secant of the curve is sought; pass zero for the
// default 40%. A surface with zero height range yields all zeros.
func ComputeFunctional(s *surface.Surface, window float64) (Functional, error) {
	if window == 0 {
		window = DefaultMaterialRatioWindow
	}
	if window <= 0 || window >= 100 {
		return Functional{}, fmt.Errorf("params: material ratio window must be in (0, 100), got %g", window)
	}

	curve, err := newAbbottCurve(s)
	if err != nil {
		return Functional{}, err
	}
	n := len(curve.z)
	if curve.z[0] == curve.z[n-1] {
		return Functional{}, nil
	}

	// Slide a fixed-width material ratio window along the curve and keep
	// the flattest secant. That secant, extended across the full axis,
	// is the equivalence line separating peaks, core and valleys.
	offset := int(window/100*float64(n-1) + 0.5)
	if offset < 1 {
		offset = 1
	}
	best := 0
	bestDrop := math.Inf(1)
	for i := 0; i+offset < n; i++ {
		drop := curve.z[i] - curve.z[i+offset]
		if drop < bestDrop {
			bestDrop = drop
			best = i
		}
	}
	slope := (curve.z[best+offset] - curve.z[best]) / (curve.mr[best+offset] - curve.mr[best])
	z0 := curve.z[best] - slope*curve.mr[best]
	z100 := z0 + slope*100

	var f Functional
	f.Sk = z0 - z100
	f.Smr1 = curve.crossBelow(z0)
	f.Smr2 = curve.crossAbove(z100)

	if f.Smr1 > 0 {
		peakArea := curve.integral(0, f.Smr1) - z0*f.Smr1
		f.Spk = 2 * peakArea / f.Smr1
	}
	if f.Smr2 < 100 {
		valleyArea := z100*(100-f.Smr2) - curve.integral(f.Smr2, 100)
		f.Svk = 2 * valleyArea / (100 - f.Smr2)
	}

	// Volume parameters per unit projected area, evaluated at the
	// standard 10% and 80% material ratios.
	vm := func(p float64) float64 {
		return (curve.integral(0, p) - curve.heightAt(p)*p) / 100
	}
	vv := func(p float64) float64 {
		return (curve.heightAt(p)*(100-p) - curve.integral(p, 100)) / 100
	}
	f.Vmp = vm(peakMaterialRatio)
	f.Vmc = vm(valleyMaterialRatio) - vm(peakMaterialRatio)
	f.Vvv = vv(valleyMaterialRatio)
	f.Vvc = vv(peakMaterialRatio) - vv(valleyMaterialRatio)
	return f, nil
}
