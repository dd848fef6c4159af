package params

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"

	"github.com/metrolab/toposcan/internal/surface"
)

// ProfileParams holds the ISO 4287 line parameters for a single
// extracted profile. Heights are micrometres; Rsk, Rku and Rdq are
// dimensionless and RSm is micrometres.
type ProfileParams struct {
	Ra  float64
	Rq  float64
	Rp  float64
	Rv  float64
	Rz  float64
	Rsk float64
	Rku float64
	// RSm is the mean spacing of profile elements, measured between
	// successive upward crossings of the mean line.
	RSm float64
	// Rdq is the root mean square profile slope.
	Rdq float64
}

// ComputeProfile evaluates the line parameters about the profile mean.
// A flat profile yields all zeros.
func ComputeProfile(p *surface.Profile) ProfileParams {
	mean := p.Mean()
	z := make([]float64, len(p.Data))
	for i, v := range p.Data {
		z[i] = v - mean
	}

	var r ProfileParams
	sumAbs := 0.0
	for _, v := range z {
		sumAbs += math.Abs(v)
		if v > r.Rp {
			r.Rp = v
		}
		if -v > r.Rv {
			r.Rv = -v
		}
	}
	n := len(z)
	r.Ra = sumAbs / float64(n)
	r.Rz = r.Rp + r.Rv

	m2 := stat.Moment(2, z, nil)
	r.Rq = math.Sqrt(m2)
	if r.Rq > 0 {
		r.Rsk = stat.Moment(3, z, nil) / (m2 * r.Rq)
		r.Rku = stat.Moment(4, z, nil) / (m2 * m2)
	}

	r.RSm = meanCrossingSpacing(z, p.Step)

	sumSlope := 0.0
	for i := 0; i < n; i++ {
		lo, hi := i-1, i+1
		span := 2.0
		if lo < 0 {
			lo = i
			span = 1
		}
		if hi >= n {
			hi = i
			span = 1
		}
		s := (z[hi] - z[lo]) / (span * p.Step)
		sumSlope += s * s
	}
	r.Rdq = math.Sqrt(sumSlope / float64(n))
	return r
}

// meanCrossingSpacing returns the mean distance between successive
// upward crossings of the mean line, or zero when fewer than two
// crossings exist.
func meanCrossingSpacing(z []float64, step float64) float64 {
	var crossings []float64
	for i := 0; i+1 < len(z); i++ {
		if z[i] < 0 && z[i+1] >= 0 {
			frac := -z[i] / (z[i+1] - z[i])
			crossings = append(crossings, (float64(i)+frac)*step)
		}
	}
	if len(crossings) < 2 {
		return 0
	}
	return (crossings[len(crossings)-1] - crossings[0]) / float64(len(crossings)-1)
}

// DominantPeriod returns the wavelength in micrometres of the
// strongest periodic component of the profile, or zero when the
// profile carries no signal above the mean line.
func DominantPeriod(p *surface.Profile) float64 {
	mean := p.Mean()
	z := make([]float64, len(p.Data))
	for i, v := range p.Data {
		z[i] = v - mean
	}

	fft := fourier.NewFFT(len(z))
	coeffs := fft.Coefficients(nil, z)

	bestK, bestMag := 0, 0.0
	for k := 1; k < len(coeffs); k++ {
		mag := math.Hypot(real(coeffs[k]), imag(coeffs[k]))
		if mag > bestMag {
			bestMag = mag
			bestK = k
		}
	}
	if bestK == 0 || bestMag < 1e-12 {
		return 0
	}
	return float64(len(z)) * p.Step / float64(bestK)
}
