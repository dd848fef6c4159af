package params

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/metrolab/toposcan/internal/surface"
)

// Amplitude holds the height-distribution parameters. All values are
// micrometres except the dimensionless Ssk and Sku.
type Amplitude struct {
	// Sa is the arithmetic mean of absolute heights about the mean plane.
	Sa float64
	// Sq is the root mean square height.
	Sq float64
	// Ssk is the skewness of the height distribution. Negative values
	// indicate a plateau surface with deep valleys.
	Ssk float64
	// Sku is the kurtosis of the height distribution; 3 for a Gaussian
	// surface.
	Sku float64
	// Sp is the maximum peak height above the mean plane.
	Sp float64
	// Sv is the maximum valley depth below the mean plane, reported as a
	// positive magnitude.
	Sv float64
	// Sz is the maximum height, Sp + Sv.
	Sz float64
}

// ComputeAmplitude evaluates the height parameters about the mean
// plane. A perfectly flat surface yields all zeros, with Ssk and Sku
// defined as zero rather than 0/0.
func ComputeAmplitude(s *surface.Surface) Amplitude {
	mean := s.Mean()
	z := make([]float64, len(s.Data))
	for i, v := range s.Data {
		z[i] = v - mean
	}

	var a Amplitude
	sumAbs := 0.0
	for _, v := range z {
		sumAbs += math.Abs(v)
		if v > a.Sp {
			a.Sp = v
		}
		if -v > a.Sv {
			a.Sv = -v
		}
	}
	a.Sa = sumAbs / float64(len(z))
	a.Sz = a.Sp + a.Sv

	m2 := stat.Moment(2, z, nil)
	a.Sq = math.Sqrt(m2)
	if a.Sq > 0 {
		a.Ssk = stat.Moment(3, z, nil) / (m2 * a.Sq)
		a.Sku = stat.Moment(4, z, nil) / (m2 * m2)
	}
	return a
}
