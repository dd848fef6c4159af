package level

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metrolab/toposcan/internal/surface"
)

// tiltedSurface builds rows x cols samples of z = a + b*x + c*y with x, y
// in physical micrometres.
func tiltedSurface(rows, cols int, a, b, c float64) *surface.Surface {
	data := make([]float64, rows*cols)
	for r := 0; r < rows; r++ {
		for col := 0; col < cols; col++ {
			x := float64(col) * 0.5
			y := float64(r) * 0.5
			data[r*cols+col] = a + b*x + c*y
		}
	}
	return surface.MustNew(data, rows, cols, 0.5, 0.5)
}

func TestLevel_RemovesPlane(t *testing.T) {
	t.Parallel()

	s := tiltedSurface(20, 30, 5.0, 0.2, -0.1)
	out, err := Level(s, 1)
	require.NoError(t, err)

	for i, v := range out.Data {
		assert.InDelta(t, 0, v, 1e-9, "sample %d", i)
	}
	// Input untouched.
	assert.InDelta(t, 5.0, s.Data[0], 1e-12)
}

func TestLevel_Order0_RemovesMeanOnly(t *testing.T) {
	t.Parallel()

	s := tiltedSurface(10, 10, 3.0, 0.4, 0)
	out, err := Level(s, 0)
	require.NoError(t, err)

	mean := 0.0
	for _, v := range out.Data {
		mean += v
	}
	mean /= float64(len(out.Data))
	assert.InDelta(t, 0, mean, 1e-9)

	// Tilt must survive an order-0 fit.
	assert.Greater(t, math.Abs(out.Data[9]-out.Data[0]), 1.0)
}

func TestLevel_Order2_RemovesCurvature(t *testing.T) {
	t.Parallel()

	rows, cols := 24, 24
	data := make([]float64, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x := float64(c)
			y := float64(r)
			data[r*cols+c] = 1 + 0.1*x - 0.05*y + 0.01*x*x + 0.02*y*y - 0.015*x*y
		}
	}
	s := surface.MustNew(data, rows, cols, 1, 1)

	out, err := Level(s, 2)
	require.NoError(t, err)
	for i, v := range out.Data {
		assert.InDelta(t, 0, v, 1e-8, "sample %d", i)
	}
}

func TestLevel_IgnoresInvalidSamples(t *testing.T) {
	t.Parallel()

	s := tiltedSurface(16, 16, 1.0, 0.3, -0.2)
	s.Valid = make([]bool, len(s.Data))
	for i := range s.Valid {
		s.Valid[i] = true
	}
	// Corrupt a few samples and mark them invalid; the fit must not see them.
	for _, i := range []int{5, 40, 100} {
		s.Data[i] += 1000
		s.Valid[i] = false
	}

	out, err := Level(s, 1)
	require.NoError(t, err)
	for i, v := range out.Data {
		if !s.Valid[i] {
			continue
		}
		assert.InDelta(t, 0, v, 1e-9, "valid sample %d", i)
	}
}

func TestLevel_OrderOutOfRange(t *testing.T) {
	t.Parallel()

	s := tiltedSurface(4, 4, 0, 0, 0)
	_, err := Level(s, -1)
	assert.Error(t, err)
	_, err = Level(s, MaxOrder+1)
	assert.Error(t, err)
}

func TestFillInvalid_Interpolates(t *testing.T) {
	t.Parallel()

	s := tiltedSurface(10, 10, 0, 1.0, 0)
	s.Valid = make([]bool, len(s.Data))
	for i := range s.Valid {
		s.Valid[i] = true
	}
	hole := 5*10 + 5
	truth := s.Data[hole]
	s.Data[hole] = 0
	s.Valid[hole] = false

	out, err := FillInvalid(s)
	require.NoError(t, err)
	assert.Nil(t, out.Valid)
	assert.InDelta(t, truth, out.Data[hole], 0.2)
}

func TestFillInvalid_NoValidNeighbours(t *testing.T) {
	t.Parallel()

	s := surface.MustNew(make([]float64, 9), 3, 3, 1, 1)
	s.Valid = make([]bool, 9) // everything invalid

	_, err := FillInvalid(s)
	assert.True(t, errors.Is(err, ErrInsufficientValidData))
}

func TestProcess_ThresholdEnforced(t *testing.T) {
	t.Parallel()

	s := tiltedSurface(10, 10, 0, 0.1, 0.1)
	s.Valid = make([]bool, len(s.Data))
	for i := range s.Valid {
		s.Valid[i] = i%2 == 0 // 50% invalid
	}

	_, err := Process(s, Options{Order: 1, OutlierThreshold: 0.25})
	assert.True(t, errors.Is(err, ErrInsufficientValidData))

	out, err := Process(s, Options{Order: 1, OutlierThreshold: 0.6})
	require.NoError(t, err)
	assert.True(t, out.AllValid())
}

func TestProcess_RejectsBadOptions(t *testing.T) {
	t.Parallel()

	s := tiltedSurface(4, 4, 0, 0, 0)
	_, err := Process(s, Options{Order: 1, OutlierThreshold: 1.5})
	assert.Error(t, err)
	_, err = Process(s, Options{Order: 99, OutlierThreshold: 0.5})
	assert.Error(t, err)
}
